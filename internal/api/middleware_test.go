package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"

	"github.com/yegors/streamscribe/pkg/logger"
)

func TestRequestIDReachesHandler(t *testing.T) {
	m := NewMiddleware(logger.Nop())

	var gotID string
	handler := m.RequestID(m.Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = middleware.GetReqID(r.Context())
		w.WriteHeader(http.StatusOK)
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, gotID)
}

func TestRecoverer(t *testing.T) {
	m := NewMiddleware(logger.Nop())

	handler := m.Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/session", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
