package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lucasberthier/prepalettres-backend/internal/works"
	"github.com/lucasberthier/prepalettres-backend/pkg/config"
	"github.com/lucasberthier/prepalettres-backend/pkg/enums"
	pkgerrors "github.com/lucasberthier/prepalettres-backend/pkg/errors"
	"github.com/lucasberthier/prepalettres-backend/pkg/logger"
)

func testClient(t *testing.T, serverURL string, maxRetries int) *DeepSeekClient {
	t.Helper()
	client := NewDeepSeekClient(config.AIConfig{
		APIKey:         "sk-test",
		BaseURL:        serverURL,
		Model:          "deepseek-chat",
		Timeout:        5 * time.Second,
		MaxRetries:     maxRetries,
		RetryBaseDelay: time.Millisecond,
	}, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	client.sleep = func(time.Duration) {}
	return client
}

func completionBody(t *testing.T, content string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return body
}

func programWork(t *testing.T) *works.Work {
	t.Helper()
	work, err := works.Find("Arthur Rimbaud", "Cahiers de Douai")
	if err != nil {
		t.Fatalf("find work: %v", err)
	}
	return &work
}

func TestGenerateSubjectParsesProviderJSON(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write(completionBody(t, `{"subject":"En quoi les Cahiers de Douai sont-ils une œuvre d'émancipation ?"}`))
	}))
	defer server.Close()

	subject, err := testClient(t, server.URL, 0).GenerateSubject(context.Background(), SubjectRequest{
		Type: enums.ExerciseDissertation,
		Work: programWork(t),
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if subject.Text == "" {
		t.Fatal("expected subject text")
	}
	if gotAuth != "Bearer sk-test" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
}

func TestGenerateSubjectRequiresWorkForDissertation(t *testing.T) {
	client := testClient(t, "http://unused.invalid", 0)
	_, err := client.GenerateSubject(context.Background(), SubjectRequest{Type: enums.ExerciseDissertation})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestChatRetriesTransientFailures(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write(completionBody(t, `{"subject":"Sujet de secours"}`))
	}))
	defer server.Close()

	if _, err := testClient(t, server.URL, 2).GenerateSubject(context.Background(), SubjectRequest{
		Type: enums.ExerciseDissertation,
		Work: programWork(t),
	}); err != nil {
		t.Fatalf("expected retry success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestChatDoesNotRetryClientErrors(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"invalid request"}}`)
	}))
	defer server.Close()

	_, err := testClient(t, server.URL, 3).GenerateSubject(context.Background(), SubjectRequest{
		Type: enums.ExerciseDissertation,
		Work: programWork(t),
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("client errors must not be retried, got %d calls", calls)
	}
}

func TestChatRejectsMalformedModelOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(completionBody(t, `this is not json`))
	}))
	defer server.Close()

	_, err := testClient(t, server.URL, 0).GenerateSubject(context.Background(), SubjectRequest{
		Type: enums.ExerciseDissertation,
		Work: programWork(t),
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error for malformed output, got %v", err)
	}
}

func TestEvaluateWorkEnforcesMinimumInput(t *testing.T) {
	client := testClient(t, "http://unused.invalid", 0)
	_, err := client.EvaluateWork(context.Background(), EvaluationRequest{
		Type:         enums.ExerciseDissertation,
		Subject:      "Sujet",
		StudentInput: "court",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for short input, got %v", err)
	}
}

func TestGenerateSubjectListFiltersEmptyEntries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(completionBody(t, `{"subjects":["Premier sujet","","Deuxième sujet"]}`))
	}))
	defer server.Close()

	subjects, err := testClient(t, server.URL, 0).GenerateSubjectList(context.Background(), SubjectRequest{
		Type: enums.ExerciseDissertation,
		Work: programWork(t),
	}, 3)
	if err != nil {
		t.Fatalf("generate list: %v", err)
	}
	if len(subjects) != 2 {
		t.Fatalf("expected 2 non-empty subjects, got %d", len(subjects))
	}
}
