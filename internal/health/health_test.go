package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/abhiramzobot/zobot-sub002/internal/resilience"
	"github.com/abhiramzobot/zobot-sub002/internal/router"
	"github.com/abhiramzobot/zobot-sub002/pkg/provider/llm"
	"github.com/abhiramzobot/zobot-sub002/pkg/provider/llm/mock"
)

func newTestHandler(t *testing.T, primary *mock.Provider) (*Handler, *router.Router) {
	t.Helper()
	r, err := router.New(router.Config{
		Primary: "openai",
		Breaker: resilience.Config{MaxFailures: 1, Cooldown: time.Hour},
	}, map[string]llm.Provider{"openai": primary}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return New(r), r
}

func TestHealthz(t *testing.T) {
	h, _ := newTestHandler(t, &mock.Provider{})

	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body response
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "ok" {
		t.Errorf("Status = %q", body.Status)
	}
}

func TestReadyz_ReportsProviders(t *testing.T) {
	h, _ := newTestHandler(t, &mock.Provider{Healthy: true})

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body response
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Providers["openai"].Status != "ok" {
		t.Errorf("providers = %+v", body.Providers)
	}
}

func TestReadyz_FailsWhenFullyOpen(t *testing.T) {
	primary := &mock.Provider{CompleteErr: errors.New("down")}
	h, r := newTestHandler(t, primary)

	// One failure opens the only breaker in the chain.
	_, _ = r.Complete(context.Background(),
		llm.CompletionRequest{Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}}},
		router.Context{ConversationID: "c1"})
	if !r.IsFullyOpen() {
		t.Fatal("router not fully open after breaker trip")
	}

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var body response
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "fail" {
		t.Errorf("Status = %q, want fail", body.Status)
	}
}
