package handle

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"calc-be/api/internal/calc"
)

// TraceLister is the read side of the trace store.
type TraceLister interface {
	Recent(ctx context.Context, limit int) ([]calc.Trace, error)
}

type Handle struct {
	engs     *calc.Engines
	analyzer *calc.Analyzer
	timeout  time.Duration

	traces      TraceLister
	tracesToken string
}

func New(engs *calc.Engines, analyzer *calc.Analyzer, timeout time.Duration) *Handle {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Handle{
		engs:     engs,
		analyzer: analyzer,
		timeout:  timeout,
	}
}

// SetTraces exposes list on GET /traces to callers presenting token as a bearer token.
// With a nil list or an empty token the route answers 404.
func (h *Handle) SetTraces(list TraceLister, token string) {
	h.traces = list
	h.tracesToken = token
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
