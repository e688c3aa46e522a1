package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/doclens/doclens/internal/api"
	"github.com/doclens/doclens/internal/models"
	"github.com/doclens/doclens/internal/translate"
)

func TestAsk_Valid(t *testing.T) {
	t.Parallel()

	svc := &mockAskRunner{
		askFn: func(_ context.Context, tenantID string, req models.AskRequest) (*models.Answer, error) {
			if tenantID != testTenantID {
				t.Errorf("expected tenant %q, got %q", testTenantID, tenantID)
			}

			return &models.Answer{
				Question: req.Question,
				Intent:   models.IntentSearch,
				Total:    2,
			}, nil
		},
	}

	r := newTestRouter()
	h := api.NewAskHandler(svc, testLogger())
	r.POST("/ask", h.Ask)

	w := doRequest(r, http.MethodPost, "/ask", `{"question":"invoices from Acme"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var answer models.Answer
	if err := json.Unmarshal(w.Body.Bytes(), &answer); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if answer.Question != "invoices from Acme" {
		t.Errorf("expected question echoed, got %q", answer.Question)
	}

	if answer.Total != 2 {
		t.Errorf("expected total 2, got %d", answer.Total)
	}
}

func TestAsk_EmptyQuestion(t *testing.T) {
	t.Parallel()

	svc := &mockAskRunner{
		askFn: func(_ context.Context, _ string, _ models.AskRequest) (*models.Answer, error) {
			return nil, models.ErrMissingQuestion
		},
	}

	r := newTestRouter()
	h := api.NewAskHandler(svc, testLogger())
	r.POST("/ask", h.Ask)

	w := doRequest(r, http.MethodPost, "/ask", `{"question":"  "}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAsk_QuestionTooLong(t *testing.T) {
	t.Parallel()

	r := newTestRouter()
	h := api.NewAskHandler(&mockAskRunner{}, testLogger())
	r.POST("/ask", h.Ask)

	long := strings.Repeat("a", 2001)
	w := doRequest(r, http.MethodPost, "/ask", `{"question":"`+long+`"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAsk_TranslationUnavailable(t *testing.T) {
	t.Parallel()

	svc := &mockAskRunner{
		askFn: func(_ context.Context, _ string, _ models.AskRequest) (*models.Answer, error) {
			return nil, translate.ErrTranslationUnavailable
		},
	}

	r := newTestRouter()
	h := api.NewAskHandler(svc, testLogger())
	r.POST("/ask", h.Ask)

	w := doRequest(r, http.MethodPost, "/ask", `{"question":"total revenue"}`)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAsk_InternalError(t *testing.T) {
	t.Parallel()

	svc := &mockAskRunner{
		askFn: func(_ context.Context, _ string, _ models.AskRequest) (*models.Answer, error) {
			return nil, errors.New("boom")
		},
	}

	r := newTestRouter()
	h := api.NewAskHandler(svc, testLogger())
	r.POST("/ask", h.Ask)

	w := doRequest(r, http.MethodPost, "/ask", `{"question":"total revenue"}`)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAsk_MalformedBody(t *testing.T) {
	t.Parallel()

	r := newTestRouter()
	h := api.NewAskHandler(&mockAskRunner{}, testLogger())
	r.POST("/ask", h.Ask)

	w := doRequest(r, http.MethodPost, "/ask", `{"question":`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}
