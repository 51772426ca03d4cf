package handle

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type traceView struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Engine     string    `json:"engine"`
	Model      string    `json:"model"`
	ImageHash  string    `json:"image_hash"`
	Outcome    string    `json:"outcome"`
	Records    int       `json:"records"`
	Raw        string    `json:"raw_reply"`
	Err        string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
}

// Traces lists recent diagnostic traces (GET /traces?limit=N) for holders of the admin token.
func (h *Handle) Traces(w http.ResponseWriter, r *http.Request) {
	if h.traces == nil || h.tracesToken == "" {
		writeError(w, http.StatusNotFound, "traces are not enabled")
		return
	}
	if !h.authorized(r) {
		w.Header().Set("WWW-Authenticate", `Bearer realm="traces"`)
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.traces.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "traces: "+err.Error())
		return
	}
	out := make([]traceView, 0, len(list))
	for _, t := range list {
		out = append(out, traceView{
			ID:         t.ID.String(),
			CreatedAt:  t.CreatedAt,
			Engine:     t.Engine,
			Model:      t.Model,
			ImageHash:  t.ImageHash,
			Outcome:    t.Outcome,
			Records:    t.Records,
			Raw:        t.Raw,
			Err:        t.Err,
			DurationMS: t.Duration.Milliseconds(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handle) authorized(r *http.Request) bool {
	tok, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(tok)), []byte(h.tracesToken)) == 1
}
