package models

import "time"

// SignatureEntityType identifies the kind of document a signature binds to.
type SignatureEntityType string

const (
	SignatureEntityProjectProposal SignatureEntityType = "PROJECT_PROPOSAL"
	SignatureEntityCommitmentTerm  SignatureEntityType = "COMMITMENT_TERM"
	SignatureEntitySelectionCall   SignatureEntityType = "SELECTION_CALL"
	SignatureEntitySelectionAta    SignatureEntityType = "SELECTION_MINUTES"
)

// SignatureRole identifies who signed.
type SignatureRole string

const (
	SignatureRoleProfessor SignatureRole = "PROFESSOR"
	SignatureRoleStudent   SignatureRole = "STUDENT"
	SignatureRoleAdmin     SignatureRole = "ADMIN"
)

// SignatureRecord is a write-once signature over a document. At most one
// record may exist per (entity type, entity, role), enforced by a unique
// index.
type SignatureRecord struct {
	ID         string              `db:"id" json:"id"`
	EntityType SignatureEntityType `db:"entity_type" json:"entity_type"`
	EntityID   string              `db:"entity_id" json:"entity_id"`
	Role       SignatureRole       `db:"role" json:"role"`
	SignerID   string              `db:"signer_id" json:"signer_id"`
	Payload    string              `db:"payload" json:"-"`
	SignedAt   time.Time           `db:"signed_at" json:"signed_at"`
}

// RecordSignatureRequest carries the signature payload captured client-side.
type RecordSignatureRequest struct {
	Payload string `json:"payload" validate:"required"`
}
