package sequence

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"cardflow/internal/kanban"
	"cardflow/internal/logging"
	"cardflow/internal/services"
)

// Allocation is the outcome of one sequence request. Degraded allocations
// carry a timestamp-derived number instead of a counter value; cards built
// from them are flagged for review because the number is unique but not
// contiguous.
type Allocation struct {
	Number   int64
	Degraded bool
}

// counterStore is the slice of the store the allocator depends on.
type counterStore interface {
	NextSequence(ctx context.Context, boardID int64) (int64, error)
}

// Allocator hands out per-board card numbers. Numbers come from the board's
// persistent counter; when contention exhausts the counter's retry budget the
// allocator falls back to a time-derived value rather than blocking card
// creation.
type Allocator struct {
	store  counterStore
	logger *slog.Logger
	now    func() time.Time
}

// NewAllocator builds an Allocator over the given store.
func NewAllocator(store counterStore, logger *slog.Logger) *Allocator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Allocator{
		store:  store,
		logger: logging.WithComponent(logger, "sequence"),
		now:    time.Now,
	}
}

// Next returns the board's next card number. Contention exhaustion degrades
// to a timestamp-derived number; cancellation and infrastructure failures
// propagate as errors.
func (a *Allocator) Next(ctx context.Context, boardID int64) (Allocation, error) {
	number, err := a.store.NextSequence(ctx, boardID)
	if err == nil {
		return Allocation{Number: number}, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Allocation{}, services.Wrap(services.ErrTransient, "sequence", "next", "allocation canceled", ctxErr)
	}
	if !errors.Is(err, kanban.ErrSequenceContended) {
		return Allocation{}, services.Wrap(services.ErrTransient, "sequence", "next", "counter unavailable", err)
	}

	fallback := a.fallbackNumber()
	a.logger.Error("sequence counter contended, issuing degraded number",
		logging.FieldBoardID, boardID,
		"fallback_number", fallback,
		"error", err,
	)
	return Allocation{Number: fallback, Degraded: true}, nil
}

// fallbackNumber derives a number from the current time. Nanosecond
// resolution keeps collisions implausible, and the UNIQUE constraint on
// (board_id, seq_number) backstops the implausible case.
func (a *Allocator) fallbackNumber() int64 {
	return a.now().UnixNano()
}
