package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lucasberthier/prepalettres-backend/internal/ai"
	"github.com/lucasberthier/prepalettres-backend/internal/exercises"
	"github.com/lucasberthier/prepalettres-backend/internal/plans"
	"github.com/lucasberthier/prepalettres-backend/internal/ratelimit"
	"github.com/lucasberthier/prepalettres-backend/internal/subscriptions"
	pkgAuth "github.com/lucasberthier/prepalettres-backend/pkg/auth"
	"github.com/lucasberthier/prepalettres-backend/pkg/config"
	"github.com/lucasberthier/prepalettres-backend/pkg/db/models"
	"github.com/lucasberthier/prepalettres-backend/pkg/enums"
	pkgerrors "github.com/lucasberthier/prepalettres-backend/pkg/errors"
	"github.com/lucasberthier/prepalettres-backend/pkg/logger"
	"github.com/lucasberthier/prepalettres-backend/pkg/types"
)

type memSubscriptionRepo struct {
	rows map[uuid.UUID]*models.Subscription
}

func newMemSubscriptionRepo() *memSubscriptionRepo {
	return &memSubscriptionRepo{rows: map[uuid.UUID]*models.Subscription{}}
}

func (m *memSubscriptionRepo) WithTx(tx *gorm.DB) subscriptions.Repository { return m }

func (m *memSubscriptionRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	row, ok := m.rows[userID]
	if !ok {
		return nil, subscriptions.ErrNotFound
	}
	copied := *row
	return &copied, nil
}

func (m *memSubscriptionRepo) FindByStripeCustomerID(ctx context.Context, customerID string) (*models.Subscription, error) {
	return nil, subscriptions.ErrNotFound
}

func (m *memSubscriptionRepo) FindByStripeSubscriptionID(ctx context.Context, subscriptionID string) (*models.Subscription, error) {
	return nil, subscriptions.ErrNotFound
}

func (m *memSubscriptionRepo) Create(ctx context.Context, sub *models.Subscription) error {
	copied := *sub
	m.rows[sub.UserID] = &copied
	return nil
}

func (m *memSubscriptionRepo) Update(ctx context.Context, sub *models.Subscription) error {
	copied := *sub
	m.rows[sub.UserID] = &copied
	return nil
}

func (m *memSubscriptionRepo) Upsert(ctx context.Context, sub *models.Subscription) error {
	return m.Update(ctx, sub)
}

func (m *memSubscriptionRepo) IncrementExerciseUsage(ctx context.Context, userID uuid.UUID) error {
	row, ok := m.rows[userID]
	if !ok {
		return subscriptions.ErrNotFound
	}
	row.ExercisesThisWeek++
	return nil
}

func (m *memSubscriptionRepo) ConsumeTutoringHours(ctx context.Context, userID uuid.UUID, hours decimal.Decimal) error {
	row, ok := m.rows[userID]
	if !ok {
		return subscriptions.ErrNotFound
	}
	if row.TutoringHours.LessThan(hours) {
		return subscriptions.ErrInsufficientTutoringHours
	}
	row.TutoringHours = row.TutoringHours.Sub(hours)
	return nil
}

type memExerciseRepo struct {
	created []*models.Exercise
}

func (m *memExerciseRepo) WithTx(tx *gorm.DB) exercises.Repository { return m }

func (m *memExerciseRepo) Create(ctx context.Context, exercise *models.Exercise) error {
	m.created = append(m.created, exercise)
	return nil
}

func (m *memExerciseRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Exercise, error) {
	var out []models.Exercise
	for i := len(m.created) - 1; i >= 0; i-- {
		if m.created[i].UserID == userID {
			out = append(out, *m.created[i])
		}
	}
	return out, nil
}

type testEnv struct {
	handler      http.Handler
	subRepo      *memSubscriptionRepo
	freeUser     uuid.UUID
	premiumUser  uuid.UUID
	tutoringUser uuid.UUID
	cfg          *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{}
	cfg.App = config.AppConfig{Env: "test", Port: "0"}
	cfg.JWT = config.JWTConfig{Secret: "test-secret", Issuer: "supabase"}
	cfg.RateLimit = config.RateLimitConfig{AIWindow: time.Minute, AIIPLimit: 20}

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	catalog := plans.NewCatalog(config.StripeConfig{})

	subRepo := newMemSubscriptionRepo()
	freeUser := uuid.New()
	premiumUser := uuid.New()
	subRepo.rows[freeUser] = &models.Subscription{
		UserID:    freeUser,
		Plan:      enums.PlanFree,
		Status:    enums.SubscriptionStatusActive,
		WeekStart: time.Now(),
	}
	subRepo.rows[premiumUser] = &models.Subscription{
		UserID:    premiumUser,
		Plan:      enums.PlanStudentPremium,
		Status:    enums.SubscriptionStatusActive,
		WeekStart: time.Now(),
	}
	tutoringUser := uuid.New()
	subRepo.rows[tutoringUser] = &models.Subscription{
		UserID:        tutoringUser,
		Plan:          enums.PlanStudentTutoring,
		Status:        enums.SubscriptionStatusActive,
		WeekStart:     time.Now(),
		TutoringHours: decimal.NewFromInt(2),
	}

	resolver, err := subscriptions.NewResolver(subscriptions.ResolverParams{
		Repo:    subRepo,
		Catalog: catalog,
		Logger:  logg,
	})
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}

	generator := ai.NewMockGenerator()
	exerciseSvc, err := exercises.NewService(exercises.ServiceParams{
		Repo:             &memExerciseRepo{},
		SubscriptionRepo: subRepo,
		Generator:        generator,
		Logger:           logg,
	})
	if err != nil {
		t.Fatalf("new exercise service: %v", err)
	}

	handler := NewRouter(RouterParams{
		Config:           cfg,
		Logger:           logg,
		PlanCatalog:      catalog,
		Resolver:         resolver,
		SubscriptionRepo: subRepo,
		Generator:        generator,
		Exercises:        exerciseSvc,
		RateLimitStore:   ratelimit.NewMemoryStore(),
	})

	return &testEnv{
		handler:      handler,
		subRepo:      subRepo,
		freeUser:     freeUser,
		premiumUser:  premiumUser,
		tutoringUser: tutoringUser,
		cfg:          cfg,
	}
}

func (e *testEnv) request(t *testing.T, method, path string, body string, userID uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	r := httptest.NewRequest(method, path, reader)
	r.RemoteAddr = "203.0.113.9:51000"
	if userID != uuid.Nil {
		token, err := pkgAuth.MintAccessToken(e.cfg.JWT, time.Now(), userID, "eleve@example.fr", time.Hour)
		if err != nil {
			t.Fatalf("mint token: %v", err)
		}
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, r)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body types.ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return body.Error.Code
}

func TestPublicPlansAndWorks(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodGet, "/api/v1/plans", "", uuid.Nil)
	if w.Code != http.StatusOK {
		t.Fatalf("plans: expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "student_premium") {
		t.Fatal("pricing payload must list the premium plan")
	}

	w = env.request(t, http.MethodGet, "/api/v1/works", "", uuid.Nil)
	if w.Code != http.StatusOK {
		t.Fatalf("works: expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Cahiers de Douai") {
		t.Fatal("program payload must list the works")
	}
}

func TestSubscriptionMeRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodGet, "/api/v1/subscriptions/me", "", uuid.Nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	w = env.request(t, http.MethodGet, "/api/v1/subscriptions/me", "", env.freeUser)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "can_do_exercise") {
		t.Fatal("payload must include the capability summary")
	}
}

func TestAIRoutesAreGatedByPlan(t *testing.T) {
	env := newTestEnv(t)
	body := `{"type":"dissertation","work_author":"Arthur Rimbaud","work_title":"Cahiers de Douai"}`

	w := env.request(t, http.MethodPost, "/api/v1/ai/generate-subject", body, env.freeUser)
	if w.Code != http.StatusForbidden {
		t.Fatalf("free plan: expected 403, got %d", w.Code)
	}
	if code := errorCode(t, w); code != string(pkgerrors.CodeAINotAvailable) {
		t.Fatalf("expected AI_NOT_AVAILABLE, got %s", code)
	}

	w = env.request(t, http.MethodPost, "/api/v1/ai/generate-subject", body, env.premiumUser)
	if w.Code != http.StatusOK {
		t.Fatalf("premium plan: expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Cahiers de Douai") {
		t.Fatal("subject must reference the requested work")
	}
}

func TestEvaluateRejectsShortInputBeforeAnyWork(t *testing.T) {
	env := newTestEnv(t)
	body := `{"type":"commentaire","subject":"Commentez ce texte","student_input":"court"}`

	w := env.request(t, http.MethodPost, "/api/v1/ai/evaluate", body, env.premiumUser)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%s)", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "10") {
		t.Fatal("refusal must cite the 10 character minimum")
	}
	if env.subRepo.rows[env.premiumUser].ExercisesThisWeek != 0 {
		t.Fatal("rejected input must not consume the allowance")
	}
}

func TestEvaluatePersistsAndCounts(t *testing.T) {
	env := newTestEnv(t)
	body := `{"type":"commentaire","subject":"Commentez ce texte","student_input":"Une réponse développée qui dépasse largement le minimum requis pour être corrigée."}`

	w := env.request(t, http.MethodPost, "/api/v1/ai/evaluate", body, env.premiumUser)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	if env.subRepo.rows[env.premiumUser].ExercisesThisWeek != 1 {
		t.Fatal("submission must count against the weekly counter")
	}

	w = env.request(t, http.MethodGet, "/api/v1/exercises", "", env.premiumUser)
	if w.Code != http.StatusOK {
		t.Fatalf("history: expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Commentez ce texte") {
		t.Fatal("history must list the stored attempt")
	}
}

func TestAIRateLimitBlocksTheTwentyFirstRequest(t *testing.T) {
	env := newTestEnv(t)
	body := `{"type":"dissertation","work_author":"Arthur Rimbaud","work_title":"Cahiers de Douai"}`

	for i := 0; i < 20; i++ {
		w := env.request(t, http.MethodPost, "/api/v1/ai/generate-subject", body, env.premiumUser)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d must pass, got %d (%s)", i+1, w.Code, w.Body.String())
		}
	}

	w := env.request(t, http.MethodPost, "/api/v1/ai/generate-subject", body, env.premiumUser)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("request 21 must be blocked, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("throttled responses carry Retry-After")
	}
}

func TestTutoringBalanceRequiresTutoringPlan(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodGet, "/api/v1/tutoring/balance", "", env.premiumUser)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if code := errorCode(t, w); code != string(pkgerrors.CodeTutoringNotAvailable) {
		t.Fatalf("expected TUTORING_NOT_AVAILABLE, got %s", code)
	}
}

func TestTutoringConsumeDecrementsBalance(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/v1/tutoring/consume", `{"hours":"1.5"}`, env.tutoringUser)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "0.5") {
		t.Fatalf("response must report the remaining balance, got %s", w.Body.String())
	}

	w = env.request(t, http.MethodGet, "/api/v1/tutoring/balance", "", env.tutoringUser)
	if w.Code != http.StatusOK {
		t.Fatalf("balance: expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "0.5") {
		t.Fatal("balance must reflect the booking")
	}

	// The remaining half hour cannot cover a full hour.
	w = env.request(t, http.MethodPost, "/api/v1/tutoring/consume", `{"hours":"1.0"}`, env.tutoringUser)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("overdraw: expected 400, got %d (%s)", w.Code, w.Body.String())
	}
}
