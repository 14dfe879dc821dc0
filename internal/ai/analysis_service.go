package ai

import (
	"context"
	"errors"

	"github.com/lucasberthier/prepalettres-backend/internal/works"
	"github.com/lucasberthier/prepalettres-backend/pkg/db/models"
	pkgerrors "github.com/lucasberthier/prepalettres-backend/pkg/errors"
	"github.com/lucasberthier/prepalettres-backend/pkg/logger"
)

// AnalysisStore persists generated study sheets.
type AnalysisStore interface {
	FindByWork(ctx context.Context, author, title string) (*models.WorkAnalysis, error)
	Create(ctx context.Context, analysis *models.WorkAnalysis) error
}

// AnalysisService serves study sheets for program works, generating each one
// at most once and answering from the cache afterwards.
type AnalysisService struct {
	gen   Generator
	store AnalysisStore
	logg  *logger.Logger
}

// AnalysisServiceParams holds AnalysisService dependencies.
type AnalysisServiceParams struct {
	Generator Generator
	Store     AnalysisStore
	Logger    *logger.Logger
}

// NewAnalysisService validates dependencies and builds the service.
func NewAnalysisService(params AnalysisServiceParams) (*AnalysisService, error) {
	if params.Generator == nil {
		return nil, errors.New("generator is required")
	}
	if params.Store == nil {
		return nil, errors.New("analysis store is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &AnalysisService{gen: params.Generator, store: params.Store, logg: params.Logger}, nil
}

// GetWorkAnalysis returns the study sheet for a program work. Unknown works
// are rejected before any generation happens.
func (s *AnalysisService) GetWorkAnalysis(ctx context.Context, author, title string) (*models.WorkAnalysis, error) {
	work, err := works.Find(author, title)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "work is not part of the program")
	}

	cached, err := s.store.FindByWork(ctx, work.Author, work.Title)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, works.ErrAnalysisNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load work analysis")
	}

	generated, err := s.gen.AnalyzeWork(ctx, work)
	if err != nil {
		return nil, err
	}

	analysis := &models.WorkAnalysis{
		WorkAuthor:        work.Author,
		WorkTitle:         work.Title,
		Biography:         generated.Biography,
		HistoricalContext: generated.HistoricalContext,
		Summary:           generated.Summary,
		Characters:        generated.Characters,
	}
	if err := s.store.Create(ctx, analysis); err != nil {
		// Concurrent requests can both miss the cache. The unique index keeps
		// one row, so a lost insert only costs a duplicate generation.
		if stored, findErr := s.store.FindByWork(ctx, work.Author, work.Title); findErr == nil {
			return stored, nil
		}
		s.logg.Error(ctx, "failed to cache work analysis", err)
	}
	return analysis, nil
}
