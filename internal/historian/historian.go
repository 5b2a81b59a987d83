// internal/historian/historian.go
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/fizzbuzz/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Sink persists one batch of events.
type Sink func(ctx context.Context, batch []models.SessionEvent) error

// Service pops session events off a Redis list and flushes them to a Sink in batches.
type Service struct {
	rdb        *redis.Client
	queue      string
	batchSize  int
	flushDelay time.Duration
	sink       Sink
	log        *logrus.Logger

	batchMu sync.Mutex
	batch   []models.SessionEvent
}

func NewService(rdb *redis.Client, queue string, batchSize int, flushDelay time.Duration, sink Sink, logger *logrus.Logger) *Service {
	if batchSize <= 0 {
		batchSize = 20
	}
	if flushDelay <= 0 {
		flushDelay = 500 * time.Millisecond
	}
	return &Service{
		rdb:        rdb,
		queue:      queue,
		batchSize:  batchSize,
		flushDelay: flushDelay,
		sink:       sink,
		log:        logger,
		batch:      make([]models.SessionEvent, 0, batchSize),
	}
}

// Run blocks until ctx is cancelled, then flushes whatever is left.
func (hs *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(hs.flushDelay)
	defer ticker.Stop()

	hs.log.Infof("historian draining %s", hs.queue)
	for {
		select {
		case <-ctx.Done():
			hs.Flush(context.Background())
			hs.log.Info("historian shutting down")
			return

		case <-ticker.C:
			hs.Flush(ctx)

		default:
			// short timeout so cancellation and the ticker are noticed
			res, err := hs.rdb.BLPop(ctx, time.Second, hs.queue).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					hs.log.WithError(err).Error("BLPop")
				}
				continue
			}
			if len(res) < 2 {
				continue
			}
			// res[0] is the queue name and res[1] the payload
			hs.Handle(ctx, []byte(res[1]))
		}
	}
}

// Handle decodes one queued payload and appends it to the batch.
func (hs *Service) Handle(ctx context.Context, payload []byte) {
	var ev models.SessionEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		hs.log.WithError(err).Warn("invalid session event")
		return
	}

	hs.batchMu.Lock()
	hs.batch = append(hs.batch, ev)
	full := len(hs.batch) >= hs.batchSize
	hs.batchMu.Unlock()

	if full {
		hs.Flush(ctx)
	}
}

// Flush hands the current batch to the sink. A failed batch is logged and dropped.
func (hs *Service) Flush(ctx context.Context) {
	hs.batchMu.Lock()
	if len(hs.batch) == 0 {
		hs.batchMu.Unlock()
		return
	}
	batchCopy := make([]models.SessionEvent, len(hs.batch))
	copy(batchCopy, hs.batch)
	hs.batch = hs.batch[:0]
	hs.batchMu.Unlock()

	if err := hs.sink(ctx, batchCopy); err != nil {
		hs.log.WithError(err).Errorf("failed to flush %d events", len(batchCopy))
		return
	}
	hs.log.Debugf("flushed %d events to DB", len(batchCopy))
}

// PostgresSink writes each batch into session_events in a single transaction.
func PostgresSink(pool *pgxpool.Pool) Sink {
	return func(ctx context.Context, batch []models.SessionEvent) error {
		return pgx.BeginTxFunc(ctx, pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
			q := `
				INSERT INTO session_events (id, session_id, game_id, event_type, payload, occurred_at)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (id) DO NOTHING
			`
			for _, ev := range batch {
				payload, err := json.Marshal(ev.Payload)
				if err != nil {
					return err
				}
				_, err = tx.Exec(ctx, q,
					ev.ID, ev.SessionID, ev.GameID, ev.Type, payload, time.UnixMilli(ev.Timestamp).UTC(),
				)
				if err != nil {
					return fmt.Errorf("insert session event %v: %w", ev.ID, err)
				}
			}
			return nil
		})
	}
}
