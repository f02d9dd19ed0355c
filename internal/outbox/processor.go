package outbox

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"go.uber.org/zap"

	"marketplace/internal/domain"
	"marketplace/internal/infrastructure/database"
	kafkaInfra "marketplace/internal/infrastructure/kafka"
)

type OutboxRepository interface {
	GetPendingMessagesTx(ctx context.Context, querier domain.Querier, limit int) ([]domain.OutboxMessage, error)
	MarkSentTx(ctx context.Context, querier domain.Querier, id string) error
	RecordFailureTx(ctx context.Context, querier domain.Querier, id string, maxAttempts int) error
}

type Options struct {
	PollInterval time.Duration
	PollTimeout  time.Duration
	BatchSize    int
	MaxAttempts  int
}

// Processor relays committed outbox rows to Kafka. Delivery is at least
// once: a row is marked SENT only after the broker acknowledged it.
type Processor struct {
	db             *sql.DB
	outboxRepo     OutboxRepository
	kafkaProducer  kafkaInfra.Producer
	opts           Options
	logger         *zap.Logger
	shutdownSignal chan struct{}
	shutdownOnce   sync.Once
	wg             sync.WaitGroup
}

func NewProcessor(
	db *sql.DB,
	outboxRepo OutboxRepository,
	kafkaProducer kafkaInfra.Producer,
	opts Options,
	logger *zap.Logger,
) *Processor {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	return &Processor{
		db:             db,
		outboxRepo:     outboxRepo,
		kafkaProducer:  kafkaProducer,
		opts:           opts,
		logger:         logger,
		shutdownSignal: make(chan struct{}),
	}
}

func (p *Processor) Start(ctx context.Context) {
	p.logger.Info("Starting outbox processor...")
	ticker := time.NewTicker(p.opts.PollInterval)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-p.shutdownSignal:
				return
			case <-ticker.C:
				if _, err := p.ProcessBatch(ctx); err != nil {
					p.logger.Error("Outbox batch failed", zap.Error(err))
				}
			}
		}
	}()
}

// Stop signals the poll loop and waits for the batch in flight.
func (p *Processor) Stop() {
	p.shutdownOnce.Do(func() {
		p.logger.Info("Signaling outbox processor to stop...")
		close(p.shutdownSignal)
	})
	p.wg.Wait()
	p.logger.Info("Outbox processor stopped.")
}

// ProcessBatch publishes one batch of pending messages inside a single
// transaction and returns how many were marked SENT. Once a message fails,
// later messages with the same key are left for the next batch so a
// payment's events keep their order.
func (p *Processor) ProcessBatch(ctx context.Context) (int, error) {
	sent := 0
	err := database.WithTx(ctx, p.db, func(tx *sql.Tx) error {
		messages, err := p.pendingMessages(ctx, tx)
		if err != nil {
			return err
		}
		if len(messages) == 0 {
			p.logger.Debug("No pending outbox messages found.")
			return nil
		}
		p.logger.Debug("Found pending outbox messages", zap.Int("count", len(messages)))

		blocked := make(map[string]bool)
		for _, msg := range messages {
			if blocked[msg.Key] {
				continue
			}
			if err := p.kafkaProducer.Produce(ctx, msg.Topic, msg.Key, msg.Payload); err != nil {
				p.logger.Warn("Failed to send outbox message to Kafka",
					zap.String("message_id", msg.ID),
					zap.String("topic", msg.Topic),
					zap.Int("attempts", msg.Attempts+1),
					zap.Error(err))
				blocked[msg.Key] = true
				if err := p.outboxRepo.RecordFailureTx(ctx, tx, msg.ID, p.opts.MaxAttempts); err != nil {
					return err
				}
				if msg.Attempts+1 >= p.opts.MaxAttempts {
					p.logger.Error("Outbox message parked as FAILED", zap.String("message_id", msg.ID))
				}
				continue
			}
			if err := p.outboxRepo.MarkSentTx(ctx, tx, msg.ID); err != nil {
				return err
			}
			sent++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if sent > 0 {
		p.logger.Info("Outbox messages published", zap.Int("count", sent))
	}
	return sent, nil
}

func (p *Processor) pendingMessages(ctx context.Context, tx *sql.Tx) ([]domain.OutboxMessage, error) {
	if p.opts.PollTimeout <= 0 {
		return p.outboxRepo.GetPendingMessagesTx(ctx, tx, p.opts.BatchSize)
	}
	queryCtx, cancel := context.WithTimeout(ctx, p.opts.PollTimeout)
	defer cancel()
	return p.outboxRepo.GetPendingMessagesTx(queryCtx, tx, p.opts.BatchSize)
}
