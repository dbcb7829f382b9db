package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/verisafe/docvault/internal/common"
)

// EncryptText encrypts a short metadata string with AES-256-CBC under a
// fixed key derived from the master secret.
//
// This is a deliberately weaker guarantee than Encrypt: there is no
// authentication tag, so tampering is not detected, and the key is not
// salted per record. It must only be used for non-sensitive,
// already-namespaced metadata strings, never for document payloads.
func (e *Engine) EncryptText(plaintext string) (string, error) {
	block, err := aes.NewCipher(e.textKey())
	if err != nil {
		return "", fmt.Errorf("new cipher: %w", err)
	}

	iv := common.GenerateRandByteArray(aes.BlockSize)
	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)

	out := make([]byte, aes.BlockSize+len(padded))
	copy(out, iv)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[aes.BlockSize:], padded)

	return base64.StdEncoding.EncodeToString(out), nil
}

// DecryptText reverses EncryptText. Corruption is typically surfaced as
// a padding error, not a verified integrity failure.
func (e *Engine) DecryptText(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	if len(raw) < aes.BlockSize || len(raw)%aes.BlockSize != 0 {
		return "", errors.New("malformed ciphertext")
	}

	block, err := aes.NewCipher(e.textKey())
	if err != nil {
		return "", fmt.Errorf("new cipher: %w", err)
	}

	iv, ct := raw[:aes.BlockSize], raw[aes.BlockSize:]
	plain := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ct)

	unpadded, err := pkcs7Unpad(plain, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(unpadded), nil
}

// textKey is fixed (not per-record) so namespaced metadata strings stay
// comparable across writes.
func (e *Engine) textKey() []byte {
	sum := sha256.Sum256(e.masterSecret)
	return sum[:]
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padding")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, errors.New("invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("invalid padding")
		}
	}
	return data[:len(data)-n], nil
}
