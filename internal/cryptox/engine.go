// Package cryptox implements the document encryption engine: authenticated
// encryption of document payloads with a per-document derived key, a weaker
// CBC pair for short metadata strings, and plaintext content hashing.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"fmt"

	"github.com/verisafe/docvault/internal/common"
	"golang.org/x/crypto/pbkdf2"
)

// Published encryption parameters. These are a compatibility contract:
// changing the iteration count or hash function breaks decryption of
// previously encrypted documents.
const (
	// SaltSize is the per-operation PBKDF2 salt length in bytes.
	SaltSize = 64
	// IVSize is the AES-GCM nonce length in bytes.
	IVSize = 16
	// TagSize is the GCM authentication tag length in bytes.
	TagSize = 16
	// KeySize is the derived AES-256 key length in bytes.
	KeySize = 32
	// PBKDF2Iterations is the fixed PBKDF2-HMAC-SHA256 iteration count.
	PBKDF2Iterations = 100_000
	// MinMasterSecretLen is the minimum acceptable master secret length.
	MinMasterSecretLen = 32
)

// EncryptedBlob is the persisted encryption metadata for one document.
// The ciphertext itself lives in object storage; the blob carries
// everything needed to re-derive the key and verify integrity.
type EncryptedBlob struct {
	Ciphertext []byte `json:"ciphertext"`
	IV         []byte `json:"iv"`
	AuthTag    []byte `json:"authTag"`
	Salt       []byte `json:"salt"`
}

// Engine encrypts and decrypts document payloads with AES-256-GCM using
// a key derived per operation from an injected master secret and a fresh
// random salt. A fresh salt per operation means a (key, IV) pair is
// never reused.
type Engine struct {
	masterSecret []byte
}

// NewEngine validates the master secret eagerly and constructs an Engine.
// Returns common.ErrConfiguration if the secret is absent or shorter than
// MinMasterSecretLen.
func NewEngine(masterSecret []byte) (*Engine, error) {
	if len(masterSecret) < MinMasterSecretLen {
		return nil, fmt.Errorf("%w: master secret must be at least %d bytes, got %d",
			common.ErrConfiguration, MinMasterSecretLen, len(masterSecret))
	}
	return &Engine{masterSecret: masterSecret}, nil
}

// deriveKey stretches the master secret and salt into an AES-256 key.
// Deterministic for a given salt so stored blobs stay decryptable.
func (e *Engine) deriveKey(salt []byte) []byte {
	return pbkdf2.Key(e.masterSecret, salt, PBKDF2Iterations, KeySize, sha256.New)
}

// Encrypt seals plaintext with AES-256-GCM under a freshly derived key.
// A new random salt and IV are generated for every call. The derived key
// never leaves this function.
func (e *Engine) Encrypt(plaintext []byte) (*EncryptedBlob, error) {
	salt := common.GenerateRandByteArray(SaltSize)
	iv := common.GenerateRandByteArray(IVSize)

	key := e.deriveKey(salt)
	defer common.WipeByteArray(key)

	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	sealed := aesgcm.Seal(nil, iv, plaintext, nil)
	split := len(sealed) - TagSize

	return &EncryptedBlob{
		Ciphertext: sealed[:split],
		IV:         iv,
		AuthTag:    sealed[split:],
		Salt:       salt,
	}, nil
}

// Decrypt re-derives the key from blob.Salt and opens the ciphertext.
// An authentication failure returns common.ErrIntegrity and no plaintext
// bytes: it may indicate tampering or corruption.
func (e *Engine) Decrypt(blob *EncryptedBlob) ([]byte, error) {
	if len(blob.IV) != IVSize || len(blob.AuthTag) != TagSize {
		return nil, fmt.Errorf("%w: malformed encryption metadata", common.ErrIntegrity)
	}

	key := e.deriveKey(blob.Salt)
	defer common.WipeByteArray(key)

	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(blob.Ciphertext)+TagSize)
	sealed = append(sealed, blob.Ciphertext...)
	sealed = append(sealed, blob.AuthTag...)

	plaintext, err := aesgcm.Open(nil, blob.IV, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: authentication tag mismatch", common.ErrIntegrity)
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aesgcm, err := cipher.NewGCMWithNonceSize(block, IVSize)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return aesgcm, nil
}
