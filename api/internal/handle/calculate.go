package handle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"calc-be/api/internal/calc/types"
	"calc-be/api/internal/util"
)

// maxBodyBytes caps a /calculate body; a full-HD canvas PNG as base64 fits easily.
const maxBodyBytes = 20 << 20

func (h *Handle) Calculate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	var req types.CalculateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
		return
	}

	engine, err := h.engs.GetEngine(req.LLMName)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	img, _, err := util.DecodeImage(req.Image)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad image: "+err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestDeadline(r, h.timeout))
	defer cancel()

	records := h.analyzer.Analyze(ctx, engine, img, req.DictOfVars)

	writeJSON(w, http.StatusOK, types.CalculateResponse{
		Message: "Image processed",
		Data:    records,
		Status:  "success",
	})
}

// requestDeadline honours X-Request-Timeout or ?timeoutSec= (seconds), else def.
func requestDeadline(r *http.Request, def time.Duration) time.Duration {
	if ts := r.Header.Get("X-Request-Timeout"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			return time.Duration(v) * time.Second
		}
	} else if ts := r.URL.Query().Get("timeoutSec"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			return time.Duration(v) * time.Second
		}
	}
	return def
}
