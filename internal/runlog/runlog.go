// Package runlog keeps an optional Postgres record of every processing run.
package runlog

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"cpa-document-processor/internal/config"
)

const (
	StatusDone  = "done"
	StatusError = "error"
)

type Run struct {
	bun.BaseModel `bun:"table:ingestion_runs,alias:r"`

	ID         string    `bun:"id,pk"`
	SourceFile string    `bun:"source_file,notnull"`
	Chunks     int       `bun:"chunks,notnull"`
	Status     string    `bun:"status,notnull"`
	Error      string    `bun:"error"`
	StartedAt  time.Time `bun:"started_at,notnull"`
	FinishedAt time.Time `bun:"finished_at,notnull"`
}

type Store struct {
	db *bun.DB
}

// Connect opens the run-log database and creates the table if needed.
func Connect(ctx context.Context, cfg *config.RunLogConfig) (*Store, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(cfg.DSN),
		pgdriver.WithPassword(cfg.Password),
	))
	db := bun.NewDB(sqldb, pgdialect.New())
	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	if _, err := db.NewCreateTable().Model((*Run)(nil)).IfNotExists().Exec(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts one finished run. The ID is assigned here when empty.
func (s *Store) Record(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	_, err := s.db.NewInsert().Model(run).Exec(ctx)
	return err
}

// Recent returns the latest runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	var runs []Run
	err := s.db.NewSelect().
		Model(&runs).
		Order("started_at DESC").
		Limit(limit).
		Scan(ctx)
	return runs, err
}
