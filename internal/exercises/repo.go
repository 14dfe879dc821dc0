package exercises

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lucasberthier/prepalettres-backend/pkg/db/models"
)

// Repository handles exercise persistence. Exercises are append-only.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, exercise *models.Exercise) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Exercise, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an exercise repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, exercise *models.Exercise) error {
	return r.db.WithContext(ctx).Create(exercise).Error
}

// ListByUser returns the user's attempts, most recent first.
func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Exercise, error) {
	var rows []models.Exercise
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
