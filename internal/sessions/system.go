package sessions

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/JaimeStill/proctor/internal/detection"
	"github.com/JaimeStill/proctor/internal/proctor"
	"github.com/JaimeStill/proctor/pkg/lifecycle"
	"github.com/JaimeStill/proctor/pkg/pagination"
)

// System defines the public contract for exam session operations. Live
// operations act on the in-memory session; queries read persisted records.
type System interface {
	Handler(maxFrameSize int64) *Handler
	Start(lc *lifecycle.Coordinator)

	Create(ctx context.Context, cmd CreateCommand) (*Session, error)
	Permission(ctx context.Context, id uuid.UUID, granted bool) (*proctor.Status, error)
	Frame(id uuid.UUID, frame []byte) error
	Visibility(id uuid.UUID, hidden bool) ([]detection.Event, error)
	Answer(ctx context.Context, id uuid.UUID, answer proctor.Answer) ([]detection.Event, error)
	Submit(id uuid.UUID) (*proctor.Report, error)
	Finalize(id uuid.UUID) (*proctor.Report, error)

	Status(id uuid.UUID) (*proctor.Status, error)
	Warnings(id uuid.UUID) (*Warnings, error)
	Counts(id uuid.UUID) (detection.Counts, error)
	Report(ctx context.Context, id uuid.UUID) (*proctor.Report, error)
	Archive(ctx context.Context, id uuid.UUID) (io.ReadCloser, error)

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Session], error)
	Find(ctx context.Context, id uuid.UUID) (*Session, error)
	Events(ctx context.Context, id uuid.UUID) ([]Event, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
