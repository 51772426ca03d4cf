package calc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"calc-be/api/internal/calc/normalize"
	"calc-be/api/internal/calc/prompt"
	"calc-be/api/internal/calc/types"
	"calc-be/api/internal/metrics"
	"calc-be/api/internal/util"
)

// OutcomeError marks analyses that never reached the normalizer.
const OutcomeError = "error"

// Trace is one diagnostic row describing an analysis. The records themselves are not kept.
type Trace struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Engine    string
	Model     string
	ImageHash string
	Outcome   string
	Records   int
	Raw       string
	Err       string
	Duration  time.Duration
}

// Tracer persists traces; a nil Tracer disables tracing.
type Tracer interface {
	SaveTrace(ctx context.Context, t Trace) error
}

// Result is the full account of one analysis.
type Result struct {
	ID      uuid.UUID
	Records []types.Record
	Outcome string // normalize.Kind string or OutcomeError
	Tier    string
	Raw     string
	Err     error
}

// Failed reports whether Records is a locally built sentinel rather than the model's answer.
func (r Result) Failed() bool { return r.Outcome != normalize.Parsed.String() }

type Analyzer struct {
	log     *slog.Logger
	tracer  Tracer
	maxSide int
	now     func() time.Time
}

type Option func(*Analyzer)

func WithLogger(l *slog.Logger) Option { return func(a *Analyzer) { a.log = l } }
func WithTracer(t Tracer) Option       { return func(a *Analyzer) { a.tracer = t } }

// WithMaxSide bounds both image sides before upload; values <= 0 keep the default.
func WithMaxSide(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.maxSide = n
		}
	}
}

func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		log:     slog.Default(),
		maxSide: util.DefaultMaxSide,
		now:     time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Analyze solves what is drawn on img. It always returns a well-formed,
// non-nil list: every failure becomes one sentinel record.
func (a *Analyzer) Analyze(ctx context.Context, eng Engine, img image.Image, vars types.VariableMap) []types.Record {
	return a.Run(ctx, eng, img, vars).Records
}

// Run is Analyze with the outcome details kept.
func (a *Analyzer) Run(ctx context.Context, eng Engine, img image.Image, vars types.VariableMap) (res Result) {
	res.ID = uuid.New()
	started := a.now()
	tr := Trace{ID: res.ID, CreatedAt: started}
	if eng != nil {
		tr.Engine, tr.Model = eng.Name(), eng.GetModel()
	}

	defer func() {
		if p := recover(); p != nil {
			res = a.failed(res, fmt.Errorf("panic: %v", p))
		}
		tr.Outcome = res.Outcome
		tr.Records = len(res.Records)
		tr.Raw = res.Raw
		if res.Err != nil {
			tr.Err = res.Err.Error()
		}
		tr.Duration = a.now().Sub(started)
		a.finish(ctx, tr, res)
	}()

	if eng == nil {
		return a.failed(res, fmt.Errorf("no engine configured"))
	}
	if img == nil {
		return a.failed(res, fmt.Errorf("no image"))
	}

	data, err := util.EncodePNG(util.PrepareImage(img, a.maxSide))
	if err != nil {
		return a.failed(res, err)
	}
	sum := sha256.Sum256(data)
	tr.ImageHash = hex.EncodeToString(sum[:])

	instr, err := prompt.Compose(vars)
	if err != nil {
		return a.failed(res, err)
	}

	callStart := a.now()
	raw, err := eng.Complete(ctx, instr, data, "image/png")
	metrics.ObserveModelCall(eng.Name(), a.now().Sub(callStart))
	res.Raw = raw
	if err != nil {
		return a.failed(res, err)
	}

	out := normalize.Normalize(raw)
	res.Records = out.Records
	res.Outcome = out.Kind.String()
	res.Tier = out.Tier
	res.Err = out.Reason
	return res
}

func (a *Analyzer) failed(res Result, err error) Result {
	res.Records = types.Sentinel(types.ExprError, "API Error: "+err.Error())
	res.Outcome = OutcomeError
	res.Tier = ""
	res.Err = err
	return res
}

func (a *Analyzer) finish(ctx context.Context, tr Trace, res Result) {
	engine := tr.Engine
	if engine == "" {
		engine = "none"
	}
	metrics.ObserveAnalysis(engine, res.Outcome)

	attrs := []any{
		"id", res.ID.String(),
		"engine", engine,
		"model", tr.Model,
		"outcome", res.Outcome,
		"tier", res.Tier,
		"records", len(res.Records),
		"duration_ms", tr.Duration.Milliseconds(),
	}
	if res.Err != nil {
		a.log.Warn("analysis failed", append(attrs, "err", res.Err, "raw", res.Raw)...)
	} else {
		a.log.Info("analysis done", attrs...)
		a.log.Debug("model reply", "id", res.ID.String(), "raw", res.Raw)
	}

	if a.tracer == nil {
		return
	}
	// the trace is written even when the caller has already gone
	tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := a.tracer.SaveTrace(tctx, tr); err != nil {
		a.log.Warn("save trace failed", "id", res.ID.String(), "err", err)
	}
}
