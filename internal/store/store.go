package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	dbtypes "github.com/nitesh/newsfront/internal/db"
)

// Regeneration triggers.
const (
	TriggerAuto   = "auto"
	TriggerManual = "manual"
)

// Regeneration outcomes.
const (
	StatusRequested = "requested"
	StatusFailed    = "failed"
)

// Regeneration is one insights-regeneration request sent to the backend.
type Regeneration struct {
	ID          string          `db:"id" json:"id"`
	EventID     int64           `db:"event_id" json:"event_id"`
	Trigger     string          `db:"trigger" json:"trigger"`
	Status      string          `db:"status" json:"status"`
	Error       dbtypes.JSONMap `db:"error" json:"error,omitempty"`
	RequestedAt time.Time       `db:"requested_at" json:"requested_at"`
}

// prepare fills the generated fields before a write.
func (r *Regeneration) prepare() {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.RequestedAt.IsZero() {
		r.RequestedAt = time.Now().UTC()
	}
}

type PgStore struct {
	db *sqlx.DB
}

func NewPgStore(db *sql.DB) *PgStore {
	return &PgStore{db: sqlx.NewDb(db, "postgres")}
}

func RunMigrations(db *sql.DB) error {
	initSQL := `
CREATE TABLE IF NOT EXISTS regenerations(
  id UUID PRIMARY KEY,
  event_id BIGINT NOT NULL,
  trigger TEXT NOT NULL,
  status TEXT NOT NULL,
  error JSONB,
  requested_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_regenerations_event ON regenerations(event_id);
CREATE INDEX IF NOT EXISTS idx_regenerations_requested ON regenerations(requested_at);
`
	_, err := db.Exec(initSQL)
	return err
}

// Record inserts one regeneration row. The error payload is written as jsonb.
func (p *PgStore) Record(ctx context.Context, r *Regeneration) error {
	r.prepare()

	stmt := `
INSERT INTO regenerations (id, event_id, trigger, status, error, requested_at)
VALUES ($1,$2,$3,$4,$5::jsonb,$6)
`
	if _, err := p.db.ExecContext(ctx, stmt, r.ID, r.EventID, r.Trigger, r.Status, r.Error, r.RequestedAt); err != nil {
		return fmt.Errorf("insert regeneration event_id=%d: %w", r.EventID, err)
	}
	return nil
}

func (p *PgStore) Recent(ctx context.Context, limit int) ([]*Regeneration, error) {
	limit = clampLimit(limit)
	rows := []*Regeneration{}
	query := `
SELECT id,event_id,trigger,status,error,requested_at
FROM regenerations
ORDER BY requested_at DESC
LIMIT $1
`
	err := p.db.SelectContext(ctx, &rows, query, limit)
	return rows, err
}

func (p *PgStore) ForEvent(ctx context.Context, eventID int64, limit int) ([]*Regeneration, error) {
	limit = clampLimit(limit)
	rows := []*Regeneration{}
	query := `
SELECT id,event_id,trigger,status,error,requested_at
FROM regenerations
WHERE event_id = $1
ORDER BY requested_at DESC
LIMIT $2
`
	err := p.db.SelectContext(ctx, &rows, query, eventID, limit)
	return rows, err
}

// clampLimit keeps list queries within sane bounds.
func clampLimit(limit int) int {
	if limit <= 0 || limit > 200 {
		return 50
	}
	return limit
}
