package handle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calc-be/api/internal/calc"
)

type fakeTraces struct {
	list     []calc.Trace
	err      error
	gotLimit int
}

func (f *fakeTraces) Recent(_ context.Context, limit int) ([]calc.Trace, error) {
	f.gotLimit = limit
	return f.list, f.err
}

func TestTraces(t *testing.T) {
	id := uuid.New()
	ft := &fakeTraces{list: []calc.Trace{{
		ID: id, Engine: "gemini", Outcome: "malformed", Raw: "[oops", Duration: 1500 * time.Millisecond,
	}}}
	h := New(&calc.Engines{}, calc.NewAnalyzer(), 0)
	h.SetTraces(ft, "s3cret")

	rec := httptest.NewRecorder()
	h.Traces(rec, tracesRequest("/traces?limit=5", "Bearer s3cret"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, ft.gotLimit)
	var out []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, id.String(), out[0]["id"])
	assert.Equal(t, "[oops", out[0]["raw_reply"])
	assert.EqualValues(t, 1500, out[0]["duration_ms"])
	assert.NotContains(t, out[0], "error")
}

func tracesRequest(target, auth string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	return req
}

func TestTraces_RequiresToken(t *testing.T) {
	ft := &fakeTraces{list: []calc.Trace{{ID: uuid.New(), Raw: "secret reply"}}}
	h := New(&calc.Engines{}, calc.NewAnalyzer(), 0)
	h.SetTraces(ft, "s3cret")

	for name, auth := range map[string]string{
		"missing":     "",
		"wrong":       "Bearer nope",
		"wrong shape": "s3cret",
		"basic":       "Basic czNjcmV0",
	} {
		rec := httptest.NewRecorder()
		h.Traces(rec, tracesRequest("/traces", auth))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
		assert.NotContains(t, rec.Body.String(), "secret reply", name)
	}
	assert.Zero(t, ft.gotLimit, "store is not read without the token")
}

func TestTraces_NotConfiguredOrFailing(t *testing.T) {
	h := New(&calc.Engines{}, calc.NewAnalyzer(), 0)
	rec := httptest.NewRecorder()
	h.Traces(rec, tracesRequest("/traces", "Bearer x"))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	h.SetTraces(&fakeTraces{}, "")
	rec = httptest.NewRecorder()
	h.Traces(rec, tracesRequest("/traces", "Bearer "))
	assert.Equal(t, http.StatusNotFound, rec.Code, "no token configured keeps the route closed")

	h.SetTraces(&fakeTraces{err: errors.New("db down")}, "x")
	rec = httptest.NewRecorder()
	h.Traces(rec, tracesRequest("/traces", "Bearer x"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
