package compliance

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kelechianya/complypoint-backend/internal/repo"
	"github.com/kelechianya/complypoint-backend/pkg/db/models"
	"github.com/kelechianya/complypoint-backend/pkg/enums"
)

// ErrStaleAggregate signals that a guarded update matched no row because the
// stored aggregate no longer equals the expected value (a concurrent reviewer
// won the race).
var ErrStaleAggregate = errors.New("submission aggregate changed since read")

// Repository persists compliance submissions.
type Repository struct {
	repo.Base
}

// NewRepository constructs a submissions repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Create(ctx context.Context, sub *models.ComplianceSubmission) (*models.ComplianceSubmission, error) {
	if err := r.DB(ctx).Create(sub).Error; err != nil {
		return nil, err
	}
	return sub, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ComplianceSubmission, error) {
	var row models.ComplianceSubmission
	if err := r.DB(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) FindByOwnerVariantKey(ctx context.Context, ownerID uuid.UUID, variant enums.SubmissionVariant, key string) (*models.ComplianceSubmission, error) {
	var row models.ComplianceSubmission
	err := r.DB(ctx).
		First(&row, "owner_user_id = ? AND variant = ? AND unique_key = ?", ownerID, variant, key).
		Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID, variant *enums.SubmissionVariant) ([]models.ComplianceSubmission, error) {
	query := r.DB(ctx).Where("owner_user_id = ?", ownerID)
	if variant != nil {
		query = query.Where("variant = ?", *variant)
	}
	var rows []models.ComplianceSubmission
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateGuarded writes the reviewed state back only if the stored aggregate
// still equals expected. Zero matched rows after a successful read means a
// concurrent update moved the aggregate first.
func (r *Repository) UpdateGuarded(ctx context.Context, sub *models.ComplianceSubmission, expected enums.SubmissionStatus) error {
	result := r.DB(ctx).
		Model(&models.ComplianceSubmission{}).
		Where("id = ? AND aggregate_status = ?", sub.ID, expected).
		Updates(map[string]any{
			"slots":               sub.Slots,
			"aggregate_status":    sub.AggregateStatus,
			"requested_aggregate": sub.RequestedAggregate,
			"rejection_reason":    sub.RejectionReason,
			"processed_at":        sub.ProcessedAt,
			"admin_id":            sub.AdminID,
			"updated_at":          time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleAggregate
	}
	return nil
}
