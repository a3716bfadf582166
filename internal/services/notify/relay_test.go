package notify

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/fastprodman/creatorledger/internal/infra/pgtestutil"
	"github.com/fastprodman/creatorledger/internal/infra/pgutils"
	pgoutbox "github.com/fastprodman/creatorledger/internal/repos/outbox/postgres"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	keys   []string
	failOn string
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, _ []byte, partitionKey string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if partitionKey == p.failOn {
		return errors.New("broker unavailable")
	}

	p.keys = append(p.keys, partitionKey)

	return nil
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]string(nil), p.keys...)
}

func enqueue(t *testing.T, db *sql.DB, keys ...string) {
	t.Helper()

	repo := pgoutbox.New(db)

	for _, k := range keys {
		err := pgutils.WithTx(t.Context(), db, func(tx *sql.Tx) error {
			_, err := repo.Enqueue(t.Context(), tx, "transfer.completed", k, map[string]string{"holder": k})
			return err
		})
		require.NoError(t, err)
	}
}

func TestRelay_RunOnce(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	t.Cleanup(cleanup)

	enqueue(t, db, "alice", "bob", "carol")

	pub := &recordingPublisher{failOn: "bob"}
	relay := NewRelay(db, pub, RelayConfig{Batch: 10})

	n, err := relay.RunOnce(t.Context())
	require.Error(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, []string{"alice"}, pub.published())

	pub.failOn = ""

	n, err = relay.RunOnce(t.Context())
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, []string{"alice", "bob", "carol"}, pub.published())

	n, err = relay.RunOnce(t.Context())
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestRelay_StartStop(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	t.Cleanup(cleanup)

	enqueue(t, db, "a", "b", "c", "d", "e")

	pub := &recordingPublisher{}
	relay := NewRelay(db, pub, RelayConfig{Interval: 10 * time.Millisecond, Batch: 2})
	relay.Start(t.Context())

	require.Eventually(t, func() bool {
		return len(pub.published()) == 5
	}, 5*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, relay.Stop(ctx))
}

func TestLogPublisher(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	pub := LogPublisher{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}

	err := pub.Publish(t.Context(), "payout.completed", []byte(`{"amount":5}`), "creator")
	require.NoError(t, err)
	require.Contains(t, buf.String(), `"event_type":"payout.completed"`)
	require.Contains(t, buf.String(), `"partition_key":"creator"`)
}

func TestKafkaPublisher_Topic(t *testing.T) {
	t.Parallel()

	_, err := NewKafkaPublisher(nil, "ledger.")
	require.Error(t, err)

	pub, err := NewKafkaPublisher([]string{"localhost:9092"}, "ledger.")
	require.NoError(t, err)
	t.Cleanup(func() { _ = pub.Close() })

	require.Equal(t, "ledger.transfer.completed", pub.Topic("transfer.completed"))
}
