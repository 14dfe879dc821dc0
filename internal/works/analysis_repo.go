package works

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/lucasberthier/prepalettres-backend/pkg/db/models"
)

// ErrAnalysisNotFound is returned when no cached analysis exists for a work.
var ErrAnalysisNotFound = errors.New("work analysis not found")

// AnalysisRepository persists generated study sheets so each program work is
// analyzed at most once.
type AnalysisRepository struct {
	db *gorm.DB
}

// NewAnalysisRepository binds the repo to the provided GORM connection.
func NewAnalysisRepository(db *gorm.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// FindByWork returns the cached analysis for a work.
func (r *AnalysisRepository) FindByWork(ctx context.Context, author, title string) (*models.WorkAnalysis, error) {
	var analysis models.WorkAnalysis
	err := r.db.WithContext(ctx).
		Where("work_author = ? AND work_title = ?", author, title).
		First(&analysis).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAnalysisNotFound
		}
		return nil, err
	}
	return &analysis, nil
}

// Create stores a freshly generated analysis.
func (r *AnalysisRepository) Create(ctx context.Context, analysis *models.WorkAnalysis) error {
	return r.db.WithContext(ctx).Create(analysis).Error
}
