package notify

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fastprodman/creatorledger/internal/infra/pgutils"
	"github.com/fastprodman/creatorledger/internal/repos/outbox"
	pgoutbox "github.com/fastprodman/creatorledger/internal/repos/outbox/postgres"
	"github.com/google/uuid"
)

type RelayConfig struct {
	Interval time.Duration
	Batch    int
}

// Relay moves committed outbox events to a Publisher.
type Relay struct {
	db     *sql.DB
	outbox outbox.Outbox
	pub    Publisher
	cfg    RelayConfig

	cancel context.CancelFunc
	done   chan struct{}
}

func NewRelay(db *sql.DB, pub Publisher, cfg RelayConfig) *Relay {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}

	if cfg.Batch <= 0 {
		cfg.Batch = 100
	}

	return &Relay{
		db:     db,
		outbox: pgoutbox.New(db),
		pub:    pub,
		cfg:    cfg,
	}
}

// RunOnce publishes one batch of pending events and returns how many were
// marked sent. Events published before a failing one are still marked, the
// rest stay pending for the next round.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	var (
		sent       int
		publishErr error
	)

	err := pgutils.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		events, err := r.outbox.ClaimPending(ctx, tx, r.cfg.Batch)
		if err != nil {
			return err
		}

		ids := make([]uuid.UUID, 0, len(events))

		for _, e := range events {
			err := r.pub.Publish(ctx, e.EventType, e.Payload, e.PartitionKey)
			if err != nil {
				publishErr = fmt.Errorf("publish event %s: %w", e.ID, err)
				break
			}

			ids = append(ids, e.ID)
		}

		if len(ids) == 0 {
			return nil
		}

		sent = len(ids)

		return r.outbox.MarkSent(ctx, tx, ids)
	})
	if err != nil {
		return 0, fmt.Errorf("relay outbox: %w", err)
	}

	return sent, publishErr
}

// Start runs the relay loop on its own goroutine until Stop is called or
// ctx is done.
func (r *Relay) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)
		r.loop(ctx)
	}()
}

// Stop cancels the loop and waits for the in-flight batch to finish.
func (r *Relay) Stop(ctx context.Context) error {
	if r.cancel == nil {
		return nil
	}

	r.cancel()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop relay: %w", ctx.Err())
	}
}

func (r *Relay) loop(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		// drain while full batches keep coming
		for {
			n, err := r.RunOnce(ctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					slog.ErrorContext(ctx, "outbox relay failed", slog.Any("error", err))
				}
				break
			}

			if n < r.cfg.Batch {
				break
			}
		}
	}
}
