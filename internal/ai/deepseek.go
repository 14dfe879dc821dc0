package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lucasberthier/prepalettres-backend/internal/works"
	"github.com/lucasberthier/prepalettres-backend/pkg/config"
	pkgerrors "github.com/lucasberthier/prepalettres-backend/pkg/errors"
	"github.com/lucasberthier/prepalettres-backend/pkg/logger"
)

const systemPrompt = "Tu es un professeur agrégé de lettres qui prépare des élèves de première aux épreuves anticipées de français. Réponds uniquement en JSON valide, sans texte autour."

// DeepSeekClient calls an OpenAI-compatible chat-completions endpoint and
// parses the structured JSON the model is instructed to return.
type DeepSeekClient struct {
	cfg    config.AIConfig
	http   *http.Client
	logg   *logger.Logger
	sleep  func(time.Duration)
	prompt promptBuilder
}

// NewDeepSeekClient builds the live generation client.
func NewDeepSeekClient(cfg config.AIConfig, logg *logger.Logger) *DeepSeekClient {
	return &DeepSeekClient{
		cfg:   cfg,
		http:  &http.Client{Timeout: cfg.Timeout},
		logg:  logg,
		sleep: time.Sleep,
	}
}

func (c *DeepSeekClient) Name() string { return "deepseek" }

func (c *DeepSeekClient) GenerateSubject(ctx context.Context, req SubjectRequest) (*Subject, error) {
	if err := validateSubjectRequest(req); err != nil {
		return nil, err
	}

	var out struct {
		Subject string `json:"subject"`
	}
	if err := c.chat(ctx, c.prompt.subject(req), &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.Subject) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "provider returned an empty subject")
	}
	return &Subject{Text: out.Subject, Type: req.Type, Work: req.Work}, nil
}

func (c *DeepSeekClient) GenerateSubjectList(ctx context.Context, req SubjectRequest, count int) ([]Subject, error) {
	if err := validateSubjectRequest(req); err != nil {
		return nil, err
	}
	if count <= 0 {
		count = defaultSubjectListSize
	}

	var out struct {
		Subjects []string `json:"subjects"`
	}
	if err := c.chat(ctx, c.prompt.subjectList(req, count), &out); err != nil {
		return nil, err
	}
	if len(out.Subjects) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "provider returned no subjects")
	}

	subjects := make([]Subject, 0, len(out.Subjects))
	for _, text := range out.Subjects {
		if strings.TrimSpace(text) == "" {
			continue
		}
		subjects = append(subjects, Subject{Text: text, Type: req.Type, Work: req.Work})
	}
	if len(subjects) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "provider returned only empty subjects")
	}
	return subjects, nil
}

func (c *DeepSeekClient) EvaluateWork(ctx context.Context, req EvaluationRequest) (*Evaluation, error) {
	if err := validateEvaluationRequest(req); err != nil {
		return nil, err
	}

	var out Evaluation
	if err := c.chat(ctx, c.prompt.evaluation(req), &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.Feedback) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "provider returned an empty evaluation")
	}
	return &out, nil
}

func (c *DeepSeekClient) AnalyzeWork(ctx context.Context, work works.Work) (*WorkAnalysis, error) {
	var out WorkAnalysis
	if err := c.chat(ctx, c.prompt.workAnalysis(work), &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.Biography) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "provider returned an empty analysis")
	}
	return &out, nil
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat respFormat    `json:"response_format"`
	Temperature    float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// chat posts one completion request and decodes the JSON document the model
// returns into out. Transient failures are retried with exponential backoff.
func (c *DeepSeekClient) chat(ctx context.Context, userPrompt string, out any) error {
	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		ResponseFormat: respFormat{Type: "json_object"},
		Temperature:    0.7,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal completion request")
	}

	var lastErr error
	attempts := c.cfg.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			c.sleep(c.cfg.RetryBaseDelay << (attempt - 1))
		}

		content, retryable, err := c.post(ctx, body)
		if err == nil {
			if decodeErr := json.Unmarshal([]byte(content), out); decodeErr != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, decodeErr, "provider returned malformed JSON")
			}
			return nil
		}
		lastErr = err
		if !retryable {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, lastErr, "ai provider call failed")
}

func (c *DeepSeekClient) post(ctx context.Context, body []byte) (content string, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", true, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, err
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return "", true, fmt.Errorf("provider responded %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("provider responded %d: %s", resp.StatusCode, truncate(string(payload), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", false, fmt.Errorf("decode provider response: %w", err)
	}
	if parsed.Error != nil {
		return "", false, fmt.Errorf("provider error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", false, fmt.Errorf("provider returned no choices")
	}
	return parsed.Choices[0].Message.Content, false, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func validateSubjectRequest(req SubjectRequest) error {
	if !req.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "exercise type is required")
	}
	if req.Type.RequiresWork() && req.Work == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("a program work is required for %s subjects", req.Type))
	}
	return nil
}

func validateEvaluationRequest(req EvaluationRequest) error {
	if !req.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "exercise type is required")
	}
	if strings.TrimSpace(req.Subject) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "subject is required")
	}
	if len(strings.TrimSpace(req.StudentInput)) < MinStudentInputLength {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("student input must be at least %d characters", MinStudentInputLength))
	}
	return nil
}
