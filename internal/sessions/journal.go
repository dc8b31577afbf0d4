package sessions

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/proctor/internal/detection"
	"github.com/JaimeStill/proctor/internal/proctor"
	"github.com/JaimeStill/proctor/pkg/lifecycle"
	"github.com/JaimeStill/proctor/pkg/repository"
	"github.com/JaimeStill/proctor/pkg/storage"
)

const journalTimeout = 10 * time.Second

// journal persists session activity off the detection path. A single
// worker keeps writes for a session in the order they were recorded.
type journal struct {
	db     *sql.DB
	store  storage.System
	logger *slog.Logger
	jobs   chan func(context.Context) error
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

func newJournal(db *sql.DB, store storage.System, logger *slog.Logger, buffer int) *journal {
	return &journal{
		db:     db,
		store:  store,
		logger: logger,
		jobs:   make(chan func(context.Context) error, buffer),
		done:   make(chan struct{}),
	}
}

func (j *journal) start(lc *lifecycle.Coordinator) {
	go j.run()

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		j.mu.Lock()
		j.closed = true
		close(j.jobs)
		j.mu.Unlock()
		<-j.done
		j.logger.Info("session journal drained")
	})
}

func (j *journal) run() {
	defer close(j.done)
	for job := range j.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
		if err := job(ctx); err != nil {
			j.logger.Error("journal write failed", "error", err)
		}
		cancel()
	}
}

func (j *journal) enqueue(job func(context.Context) error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.closed {
		j.logger.Warn("journal closed, dropping write")
		return
	}

	select {
	case j.jobs <- job:
	default:
		j.logger.Warn("journal queue full, dropping write")
	}
}

func (j *journal) Violation(sessionID uuid.UUID, e detection.Event) {
	j.enqueue(func(ctx context.Context) error {
		_, err := j.db.ExecContext(
			ctx,
			`INSERT INTO session_events(id, session_id, kind, message, label, confidence, occurred_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.New(), sessionID, string(e.Kind), e.Message, e.Label, e.Confidence, e.At,
		)
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		return nil
	})
}

func (j *journal) Completed(report *proctor.Report) {
	j.enqueue(func(ctx context.Context) error {
		return j.saveReport(ctx, report)
	})
}

func (j *journal) started(id uuid.UUID, at time.Time) {
	j.enqueue(func(ctx context.Context) error {
		return repository.ExecOne(
			ctx, j.db,
			`UPDATE sessions SET state = $2, started_at = $3, updated_at = NOW() WHERE id = $1`,
			id, string(proctor.StateInProgress), at,
		)
	})
}

func (j *journal) saveReport(ctx context.Context, report *proctor.Report) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	key := reportKey(report.SessionID)
	if err := j.store.Upload(ctx, key, bytes.NewReader(body), "application/json"); err != nil {
		j.logger.Warn("report archive failed", "session", report.SessionID, "error", err)
		key = ""
	}

	err = repository.Tx(ctx, j.db, func(tx *sql.Tx) error {
		if err := repository.ExecOne(
			ctx, tx,
			`UPDATE sessions SET state = $2, completed_at = $3, updated_at = NOW() WHERE id = $1`,
			report.SessionID, string(proctor.StateCompleted), report.CompletedAt,
		); err != nil {
			return fmt.Errorf("update session: %w", err)
		}

		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO reports(session_id, high_risk, ai_detected, forced, total_time_seconds, warning_count, body, storage_key)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (session_id) DO NOTHING`,
			report.SessionID,
			report.HighRisk != nil,
			report.AIDetected,
			report.Forced,
			report.TotalTime,
			len(report.Warnings),
			string(body),
			key,
		)
		if err != nil {
			return fmt.Errorf("insert report: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	j.logger.Info("report saved", "session", report.SessionID, "storage_key", key)
	return nil
}

func reportKey(id uuid.UUID) string {
	return fmt.Sprintf("reports/%s.json", id)
}

// fanout forwards notifications to several notifiers in order.
type fanout []proctor.Notifier

func (f fanout) Violation(sessionID uuid.UUID, e detection.Event) {
	for _, n := range f {
		n.Violation(sessionID, e)
	}
}

func (f fanout) Completed(report *proctor.Report) {
	for _, n := range f {
		n.Completed(report)
	}
}
