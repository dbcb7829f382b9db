// Package models defines the persisted domain records of the DocVault
// core: document metadata, the append-only deletion audit entry and the
// durable anchor queue job.
package models

import (
	"fmt"
	"time"

	"github.com/verisafe/docvault/internal/cryptox"
)

// DocumentType is the closed set of verification document categories.
type DocumentType string

const (
	DocumentTypeIdentity     DocumentType = "identity"
	DocumentTypeAddressProof DocumentType = "address-proof"
	DocumentTypePhoto        DocumentType = "photo"
)

// ParseDocumentType validates a raw category string against the closed
// set. Unknown categories are rejected at the boundary instead of being
// carried as free-form strings.
func ParseDocumentType(s string) (DocumentType, error) {
	switch t := DocumentType(s); t {
	case DocumentTypeIdentity, DocumentTypeAddressProof, DocumentTypePhoto:
		return t, nil
	default:
		return "", fmt.Errorf("unknown document type %q", s)
	}
}

// DocumentStatus is the review state of a document. It is written only
// by the external review collaborator; the lifecycle policy reads it.
type DocumentStatus string

const (
	DocumentStatusPending  DocumentStatus = "pending"
	DocumentStatusApproved DocumentStatus = "approved"
	DocumentStatusRejected DocumentStatus = "rejected"
)

// AnchorRef is the ledger reference recorded once a document's content
// hash has been anchored.
type AnchorRef struct {
	TxRef       string
	ConfirmedAt time.Time
}

// DocumentRecord is the metadata row for one uploaded document. ID,
// OwnerID, DocumentType, ContentHash and UploadedAt are immutable after
// creation. The ciphertext itself lives in object storage under
// StorageRef; Encryption holds the metadata needed to decrypt it.
type DocumentRecord struct {
	ID           string
	OwnerID      string
	DocumentType DocumentType
	ContentHash  string
	Encryption   cryptox.EncryptedBlob
	StorageRef   string
	Status       DocumentStatus
	UploadedAt   time.Time
	Anchor       *AnchorRef
}
