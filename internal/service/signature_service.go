package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/dcc-ufba/monitoria-api/internal/models"
	"github.com/dcc-ufba/monitoria-api/internal/repository"
	appErrors "github.com/dcc-ufba/monitoria-api/pkg/errors"
)

type signatureRepository interface {
	Create(ctx context.Context, record *models.SignatureRecord) error
	Exists(ctx context.Context, entityType models.SignatureEntityType, entityID string, role models.SignatureRole) (bool, error)
	ListByEntity(ctx context.Context, entityType models.SignatureEntityType, entityID string) ([]models.SignatureRecord, error)
}

// SignatureService maintains write-once signatures per entity and role and
// answers readiness checks consumed by the lifecycle services.
type SignatureService struct {
	repo      signatureRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSignatureService constructs SignatureService.
func NewSignatureService(repo signatureRepository, validate *validator.Validate, logger *zap.Logger) *SignatureService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SignatureService{repo: repo, validator: validate, logger: logger}
}

// Record stores a signature for the (entity type, entity, role) slot.
// Re-signing an occupied slot fails with AlreadySigned.
func (s *SignatureService) Record(ctx context.Context, entityType models.SignatureEntityType, entityID string, role models.SignatureRole, signerID string, req models.RecordSignatureRequest) (*models.SignatureRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid signature payload")
	}
	record := &models.SignatureRecord{
		EntityType: entityType,
		EntityID:   entityID,
		Role:       role,
		SignerID:   signerID,
		Payload:    req.Payload,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrAlreadySigned, "entity already signed for this role")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record signature")
	}
	s.logger.Info("signature recorded",
		zap.String("entity_type", string(entityType)),
		zap.String("entity_id", entityID),
		zap.String("role", string(role)))
	return record, nil
}

// IsReady reports whether the required role has signed the entity.
func (s *SignatureService) IsReady(ctx context.Context, entityType models.SignatureEntityType, entityID string, requiredRole models.SignatureRole) (bool, error) {
	exists, err := s.repo.Exists(ctx, entityType, entityID, requiredRole)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check signature")
	}
	return exists, nil
}

// ListByEntity returns the signatures recorded for an entity.
func (s *SignatureService) ListByEntity(ctx context.Context, entityType models.SignatureEntityType, entityID string) ([]models.SignatureRecord, error) {
	records, err := s.repo.ListByEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list signatures")
	}
	return records, nil
}
