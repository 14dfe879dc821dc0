package ai

import (
	"context"

	"github.com/lucasberthier/prepalettres-backend/internal/works"
	"github.com/lucasberthier/prepalettres-backend/pkg/config"
	"github.com/lucasberthier/prepalettres-backend/pkg/logger"
)

// Generator produces subjects, evaluations and work analyses. Exactly one
// implementation is selected at boot: the live provider when a credential is
// configured, the deterministic offline generator otherwise.
type Generator interface {
	GenerateSubject(ctx context.Context, req SubjectRequest) (*Subject, error)
	GenerateSubjectList(ctx context.Context, req SubjectRequest, count int) ([]Subject, error)
	EvaluateWork(ctx context.Context, req EvaluationRequest) (*Evaluation, error)
	AnalyzeWork(ctx context.Context, work works.Work) (*WorkAnalysis, error)
	Name() string
}

// NewGenerator selects the generation backend from configuration. Running
// without a credential is legitimate in development but must never pass
// silently in production.
func NewGenerator(cfg config.AIConfig, appCfg config.AppConfig, logg *logger.Logger) Generator {
	ctx := context.Background()
	if cfg.LiveEnabled() {
		logg.Info(ctx, "ai generation backend: live provider")
		return NewDeepSeekClient(cfg, logg)
	}
	if appCfg.IsProd() {
		logg.Warn(ctx, "no ai credential configured, falling back to the offline generator in production")
	} else {
		logg.Info(ctx, "ai generation backend: offline generator")
	}
	return NewMockGenerator()
}
