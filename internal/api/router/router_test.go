package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dentalchat/intake-agent/internal/intake"
)

type noopService struct{}

func (noopService) StartConversation(context.Context) (*intake.Response, error) {
	return &intake.Response{SessionID: "s1", Message: "welcome"}, nil
}

func (noopService) ProcessMessage(context.Context, intake.MessageRequest) (*intake.Response, error) {
	return &intake.Response{SessionID: "s1", Message: "ok"}, nil
}

func (noopService) Summary(context.Context, string) (*intake.SessionSummary, error) {
	return &intake.SessionSummary{SessionID: "s1"}, nil
}

func TestRouterRoutes(t *testing.T) {
	h := intake.NewHandler(noopService{}, nil)
	r := New(&Config{IntakeHandler: h})

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodPost, "/chat/start", http.StatusOK},
		{http.MethodGet, "/chat/s1/summary", http.StatusOK},
		{http.MethodGet, "/chat/debug/sessions", http.StatusNotFound},
		{http.MethodGet, "/nope", http.StatusNotFound},
	}

	for _, tc := range tests {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, tc.want, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestRouterDebugEndpointEnabled(t *testing.T) {
	h := intake.NewHandler(noopService{}, nil)
	r := New(&Config{IntakeHandler: h, EnableDebug: true})

	req := httptest.NewRequest(http.MethodGet, "/chat/debug/sessions", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	// The noop service exposes no stats provider.
	require.Equal(t, http.StatusNotFound, rec.Code)
}
