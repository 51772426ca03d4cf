package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"calc-be/api/internal/calc"
)

const schema = `
create table if not exists calc_traces (
    id          uuid primary key,
    created_at  timestamptz not null default now(),
    engine      text not null,
    model       text not null,
    image_hash  text not null,
    outcome     text not null,
    records     int  not null,
    raw_reply   text not null,
    error_text  text not null,
    duration_ms bigint not null
);
create index if not exists calc_traces_created_at_idx on calc_traces (created_at desc);
create index if not exists calc_traces_image_hash_idx on calc_traces (image_hash);`

type TraceRepo struct{ DB *sql.DB }

func NewTraceRepo(db *sql.DB) *TraceRepo { return &TraceRepo{DB: db} }

func (r *TraceRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure calc_traces: %w", err)
	}
	return nil
}

// SaveTrace implements calc.Tracer.
func (r *TraceRepo) SaveTrace(ctx context.Context, t calc.Trace) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	const q = `
insert into calc_traces(id, created_at, engine, model, image_hash, outcome, records, raw_reply, error_text, duration_ms)
values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err := r.DB.ExecContext(ctx, q,
		t.ID.String(), t.CreatedAt.UTC(), t.Engine, t.Model, t.ImageHash, t.Outcome,
		t.Records, t.Raw, t.Err, t.Duration.Milliseconds())
	return err
}

// Recent returns up to limit traces, newest first.
func (r *TraceRepo) Recent(ctx context.Context, limit int) ([]calc.Trace, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	const q = `
select id, created_at, engine, model, image_hash, outcome, records, raw_reply, error_text, duration_ms
from calc_traces
order by created_at desc
limit $1`
	rows, err := r.DB.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []calc.Trace{}
	for rows.Next() {
		var (
			t  calc.Trace
			id string
			ms int64
		)
		if err := rows.Scan(&id, &t.CreatedAt, &t.Engine, &t.Model, &t.ImageHash, &t.Outcome,
			&t.Records, &t.Raw, &t.Err, &ms); err != nil {
			return nil, err
		}
		if t.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("bad trace id %q: %w", id, err)
		}
		t.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TraceRepo) Ping(ctx context.Context) error { return r.DB.PingContext(ctx) }
