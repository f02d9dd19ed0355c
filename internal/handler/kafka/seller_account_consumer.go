package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"marketplace/internal/domain"
	"marketplace/internal/domain/event"
	kafka_infra "marketplace/internal/infrastructure/kafka"
)

type SellerAccountLinker interface {
	LinkSellerAccount(ctx context.Context, evt event.SellerAccountLinkedEvent) error
}

// SellerAccountLinkedMessageHandler upserts seller accounts announced by the
// account-linking flow. Undecodable or incomplete messages are acknowledged
// and dropped; storage failures are returned so the offset is not committed.
func SellerAccountLinkedMessageHandler(linker SellerAccountLinker, logger *zap.Logger) kafka_infra.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		logger.Debug("Received seller account message",
			zap.String("topic", msg.Topic),
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
		)

		var linked event.SellerAccountLinkedEvent
		if err := json.Unmarshal(msg.Value, &linked); err != nil {
			logger.Error("Failed to unmarshal SellerAccountLinkedEvent",
				zap.Error(err),
				zap.ByteString("value", msg.Value),
				zap.Int64("offset", msg.Offset),
			)
			return nil
		}

		if err := linker.LinkSellerAccount(ctx, linked); err != nil {
			if errors.Is(err, domain.ErrInvalidInput) {
				logger.Warn("Dropping incomplete seller account event",
					zap.String("user_id", linked.UserID),
					zap.Error(err),
				)
				return nil
			}
			return fmt.Errorf("failed to link seller account for user %s: %w", linked.UserID, err)
		}
		return nil
	}
}
