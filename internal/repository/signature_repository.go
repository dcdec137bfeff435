package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dcc-ufba/monitoria-api/internal/models"
)

// SignatureRepository handles persistence of write-once signatures.
type SignatureRepository struct {
	db *sqlx.DB
}

// NewSignatureRepository constructs the repository.
func NewSignatureRepository(db *sqlx.DB) *SignatureRepository {
	return &SignatureRepository{db: db}
}

// Create inserts a signature record. The unique index on
// (entity_type, entity_id, role) rejects a second signature for the same
// slot, surfaced to callers via IsUniqueViolation.
func (r *SignatureRepository) Create(ctx context.Context, record *models.SignatureRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.SignedAt.IsZero() {
		record.SignedAt = time.Now().UTC()
	}
	const query = `INSERT INTO signatures (id, entity_type, entity_id, role, signer_id, payload, signed_at)
		VALUES (:id, :entity_type, :entity_id, :role, :signer_id, :payload, :signed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create signature: %w", err)
	}
	return nil
}

// Find returns the signature for a (entity type, entity, role) slot.
func (r *SignatureRepository) Find(ctx context.Context, entityType models.SignatureEntityType, entityID string, role models.SignatureRole) (*models.SignatureRecord, error) {
	const query = `SELECT id, entity_type, entity_id, role, signer_id, payload, signed_at
		FROM signatures WHERE entity_type = $1 AND entity_id = $2 AND role = $3`
	var record models.SignatureRecord
	if err := r.db.GetContext(ctx, &record, query, entityType, entityID, role); err != nil {
		return nil, err
	}
	return &record, nil
}

// Exists reports whether a signature occupies the given slot.
func (r *SignatureRepository) Exists(ctx context.Context, entityType models.SignatureEntityType, entityID string, role models.SignatureRole) (bool, error) {
	const query = `SELECT 1 FROM signatures WHERE entity_type = $1 AND entity_id = $2 AND role = $3 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, entityType, entityID, role); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check signature: %w", err)
	}
	return true, nil
}

// ListByEntity returns all signatures recorded for an entity.
func (r *SignatureRepository) ListByEntity(ctx context.Context, entityType models.SignatureEntityType, entityID string) ([]models.SignatureRecord, error) {
	const query = `SELECT id, entity_type, entity_id, role, signer_id, payload, signed_at
		FROM signatures WHERE entity_type = $1 AND entity_id = $2 ORDER BY signed_at ASC`
	var records []models.SignatureRecord
	if err := r.db.SelectContext(ctx, &records, query, entityType, entityID); err != nil {
		return nil, fmt.Errorf("list signatures: %w", err)
	}
	return records, nil
}
