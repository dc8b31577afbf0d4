package sessions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/proctor/internal/detection"
	"github.com/JaimeStill/proctor/internal/proctor"
	"github.com/JaimeStill/proctor/pkg/lifecycle"
	"github.com/JaimeStill/proctor/pkg/pagination"
	"github.com/JaimeStill/proctor/pkg/query"
	"github.com/JaimeStill/proctor/pkg/repository"
	"github.com/JaimeStill/proctor/pkg/storage"
)

type repo struct {
	db         *sql.DB
	storage    storage.System
	manager    *proctor.Manager
	journal    *journal
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates the session system. Notifications from live sessions go to
// deps.Notifier and to the persistence journal. Completed sessions stay live
// for the retention window, after which reads use the persisted report.
func New(
	db *sql.DB,
	store storage.System,
	cfg detection.Config,
	retention proctor.Config,
	deps proctor.Deps,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	logger = logger.With("system", "sessions")
	j := newJournal(db, store, logger, 256)

	notifiers := fanout{j}
	if deps.Notifier != nil {
		notifiers = fanout{deps.Notifier, j}
	}
	deps.Notifier = notifiers
	if deps.Logger == nil {
		deps.Logger = logger
	}

	return &repo{
		db:         db,
		storage:    store,
		manager:    proctor.NewManager(cfg, retention, deps),
		journal:    j,
		logger:     logger,
		pagination: pagination,
	}
}

func (r *repo) Handler(maxFrameSize int64) *Handler {
	return NewHandler(r, r.logger, r.pagination, maxFrameSize)
}

func (r *repo) Start(lc *lifecycle.Coordinator) {
	r.journal.start(lc)

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		r.manager.Close()
		r.logger.Info("live sessions stopped", "count", r.manager.Len())
	})
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Session, error) {
	if err := validateCreate(cmd); err != nil {
		return nil, err
	}

	live, err := r.manager.Create(proctor.Options{
		ExamID:    cmd.ExamID,
		Questions: cmd.QuestionIDs,
		Budget:    time.Duration(cmd.TimeBudgetSeconds) * time.Second,
	})
	if err != nil {
		return nil, err
	}

	questions, err := json.Marshal(cmd.QuestionIDs)
	if err != nil {
		r.manager.Remove(live.ID())
		return nil, fmt.Errorf("encode question_ids: %w", err)
	}

	q := `
		INSERT INTO sessions(id, exam_id, question_ids, time_budget_seconds, state)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, exam_id, question_ids, time_budget_seconds, state, started_at, completed_at, created_at, updated_at`

	args := []any{live.ID(), cmd.ExamID, string(questions), cmd.TimeBudgetSeconds, string(proctor.StateNotStarted)}

	s, err := repository.QueryOne(ctx, r.db, q, args, scanSession)
	if err != nil {
		r.manager.Remove(live.ID())
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("session created", "id", s.ID, "exam", s.ExamID)
	return &s, nil
}

func (r *repo) Permission(ctx context.Context, id uuid.UUID, granted bool) (*proctor.Status, error) {
	live, err := r.live(id)
	if err != nil {
		return nil, err
	}

	if err := live.GrantPermission(context.WithoutCancel(ctx), granted); err != nil {
		return nil, err
	}

	st := live.Status()
	if st.StartedAt != nil {
		r.journal.started(id, *st.StartedAt)
	}
	return &st, nil
}

func (r *repo) Frame(id uuid.UUID, frame []byte) error {
	live, err := r.live(id)
	if err != nil {
		return err
	}
	return live.PushFrame(frame)
}

func (r *repo) Visibility(id uuid.UUID, hidden bool) ([]detection.Event, error) {
	live, err := r.live(id)
	if err != nil {
		return nil, err
	}
	return live.ReportVisibility(hidden)
}

func (r *repo) Answer(ctx context.Context, id uuid.UUID, answer proctor.Answer) ([]detection.Event, error) {
	live, err := r.live(id)
	if err != nil {
		return nil, err
	}
	return live.UpdateAnswer(ctx, answer)
}

func (r *repo) Submit(id uuid.UUID) (*proctor.Report, error) {
	live, err := r.live(id)
	if err != nil {
		return nil, err
	}
	return live.Submit()
}

func (r *repo) Finalize(id uuid.UUID) (*proctor.Report, error) {
	live, err := r.live(id)
	if err != nil {
		return nil, err
	}
	return live.Finalize()
}

func (r *repo) Status(id uuid.UUID) (*proctor.Status, error) {
	live, err := r.live(id)
	if err != nil {
		return nil, err
	}
	st := live.Status()
	return &st, nil
}

func (r *repo) Warnings(id uuid.UUID) (*Warnings, error) {
	live, err := r.live(id)
	if err != nil {
		return nil, err
	}
	return &Warnings{Recent: live.RecentWarnings(), All: live.Warnings()}, nil
}

func (r *repo) Counts(id uuid.UUID) (detection.Counts, error) {
	live, err := r.live(id)
	if err != nil {
		return nil, err
	}
	return live.Counts(), nil
}

// Report prefers the live session and falls back to the persisted report.
func (r *repo) Report(ctx context.Context, id uuid.UUID) (*proctor.Report, error) {
	if live, err := r.manager.Get(id); err == nil {
		if report, ok := live.Report(); ok {
			return report, nil
		}
		return nil, ErrReportNotReady
	}

	var body []byte
	err := r.db.QueryRowContext(ctx, "SELECT body FROM reports WHERE session_id = $1", id).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, ferr := r.Find(ctx, id); ferr != nil {
				return nil, ferr
			}
			return nil, ErrReportNotReady
		}
		return nil, fmt.Errorf("query report: %w", err)
	}

	var report proctor.Report
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &report, nil
}

func (r *repo) Archive(ctx context.Context, id uuid.UUID) (io.ReadCloser, error) {
	rc, err := r.storage.Download(ctx, reportKey(id))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrReportNotReady
		}
		return nil, fmt.Errorf("download report: %w", err)
	}
	return rc, nil
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Session], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "ExamID")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderBy(page.Sort...)
	}

	countSQL, countArgs := qb.Count()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}

	pageSQL, pageArgs := qb.Page(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanSession)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Session, error) {
	q, args := query.NewBuilder(projection).One("ID", id)

	s, err := repository.QueryOne(ctx, r.db, q, args, scanSession)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &s, nil
}

func (r *repo) Events(ctx context.Context, id uuid.UUID) ([]Event, error) {
	if _, err := r.Find(ctx, id); err != nil {
		return nil, err
	}

	q, args := query.
		NewBuilder(eventProjection, eventSort).
		WhereEquals("SessionID", id).
		Select()

	events, err := repository.QueryMany(ctx, r.db, q, args, scanEvent)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	return events, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	if live, err := r.manager.Get(id); err == nil && live.Active() {
		return proctor.ErrAlreadyStarted
	}

	if err := repository.ExecOne(ctx, r.db, "DELETE FROM sessions WHERE id = $1", id); err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.manager.Remove(id)

	key := reportKey(id)
	if ok, err := r.storage.Exists(ctx, key); err == nil && ok {
		if err := r.storage.Delete(ctx, key); err != nil {
			r.logger.Warn("report archive delete failed", "key", key, "error", err)
		}
	}

	r.logger.Info("session deleted", "id", id)
	return nil
}

func (r *repo) live(id uuid.UUID) (*proctor.Session, error) {
	s, err := r.manager.Get(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotLive, err)
	}
	return s, nil
}

func validateCreate(cmd CreateCommand) error {
	if strings.TrimSpace(cmd.ExamID) == "" {
		return fmt.Errorf("%w: exam_id required", ErrInvalidRequest)
	}
	if len(cmd.QuestionIDs) == 0 {
		return proctor.ErrNoQuestions
	}
	for _, q := range cmd.QuestionIDs {
		if strings.TrimSpace(q) == "" {
			return fmt.Errorf("%w: empty question id", ErrInvalidRequest)
		}
	}
	if cmd.TimeBudgetSeconds <= 0 {
		return proctor.ErrInvalidBudget
	}
	return nil
}
