package outbox

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/moim/moim-api/internal/pkg/database"
)

const (
	defaultInterval  = 2 * time.Second
	defaultBatchSize = 100
	maxAttempts      = 8
	baseBackoff      = 5 * time.Second
	maxBackoff       = 10 * time.Minute
)

// Worker drains pending outbox events and publishes them with retry. Delivery
// is at-least-once: an event is marked delivered only after a successful
// publish, so subscribers must tolerate duplicates.
type Worker struct {
	db        *sqlx.DB
	repo      Repository
	publisher Publisher
	interval  time.Duration
	batchSize int
	stopCh    chan struct{}
}

// NewWorker creates an outbox worker.
func NewWorker(db *sqlx.DB, repo Repository, publisher Publisher, interval time.Duration) *Worker {
	if interval == 0 {
		interval = defaultInterval
	}
	return &Worker{
		db:        db,
		repo:      repo,
		publisher: publisher,
		interval:  interval,
		batchSize: defaultBatchSize,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the background delivery loop.
func (w *Worker) Start() {
	log.Info().Dur("interval", w.interval).Msg("Starting outbox worker")
	go w.loop()
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() {
	log.Info().Msg("Stopping outbox worker")
	close(w.stopCh)
}

func (w *Worker) loop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.deliverBatch()

	for {
		select {
		case <-ticker.C:
			w.deliverBatch()
		case <-w.stopCh:
			return
		}
	}
}

// deliverBatch claims, publishes and marks one batch inside a single
// transaction. The claimed rows stay locked until commit, so concurrent
// workers cannot pick them up in between.
func (w *Worker) deliverBatch() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := database.WithTx(ctx, w.db, func(tx *sqlx.Tx) error {
		events, err := w.repo.ClaimBatch(ctx, tx, w.batchSize)
		if err != nil {
			return err
		}

		for i := range events {
			w.deliver(ctx, tx, &events[i])
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("Outbox batch failed")
	}
}

// deliver publishes one event and records the outcome. Publish failures are
// recorded, not returned: one bad event must not roll back the whole batch.
func (w *Worker) deliver(ctx context.Context, tx *sqlx.Tx, event *Event) {
	err := w.publisher.Publish(ctx, event.Topic, event.Payload)
	if err == nil {
		if err := w.repo.MarkDelivered(ctx, tx, event.ID); err != nil {
			log.Error().Err(err).Str("event_id", event.ID.String()).Msg("Failed to mark outbox event delivered")
		}
		return
	}

	attempts := event.Attempts + 1
	terminal := attempts >= maxAttempts
	nextAttempt := time.Now().Add(Backoff(attempts))

	log.Warn().
		Err(err).
		Str("event_id", event.ID.String()).
		Str("topic", event.Topic).
		Int("attempts", attempts).
		Bool("terminal", terminal).
		Msg("Outbox delivery failed")

	if err := w.repo.MarkFailed(ctx, tx, event.ID, attempts, nextAttempt, terminal); err != nil {
		log.Error().Err(err).Str("event_id", event.ID.String()).Msg("Failed to record outbox delivery failure")
	}
}

// Backoff returns the exponential delay before the given attempt is retried.
func Backoff(attempts int) time.Duration {
	d := baseBackoff
	for i := 1; i < attempts; i++ {
		d *= 2
		if d > maxBackoff {
			return maxBackoff
		}
	}
	return d
}
