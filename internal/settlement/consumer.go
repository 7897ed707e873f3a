// Package settlement consumes bank reconciliation events and finalizes
// pending bank-transfer bookings.
package settlement

import (
	"context"

	apperrors "wanderly/pkg/errors"
	"wanderly/pkg/kafka"
	"wanderly/pkg/logger"
)

// Settler is the slice of the booking coordinator the settlement worker
// needs.
type Settler interface {
	MarkSettled(ctx context.Context, paymentID string) error
	FailSettlement(ctx context.Context, paymentID, reason string) error
}

// settlementEvent is the payload published by the bank reconciliation job.
type settlementEvent struct {
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
}

const (
	statusSettled = "settled"
	statusFailed  = "failed"
)

// NewHandler returns the message handler wired into the Kafka consumer.
// Unknown event types and malformed payloads are acknowledged and dropped;
// retrying them can never succeed.
func NewHandler(settler Settler, log *logger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		if eventType := msg.EventType(); eventType != "" && eventType != kafka.EventBankSettlement {
			log.Debug("ignoring event", "event_type", eventType, "key", msg.Key)
			return nil
		}

		var event settlementEvent
		if err := msg.DecodeValue(&event); err != nil {
			log.Error("dropping malformed settlement event",
				"key", msg.Key,
				"error", err,
			)
			return nil
		}

		if event.PaymentID == "" {
			log.Error("dropping settlement event without payment id", "key", msg.Key)
			return nil
		}

		switch event.Status {
		case statusSettled:
			return dropTerminal(log, &event, settler.MarkSettled(ctx, event.PaymentID))
		case statusFailed:
			reason := event.Reason
			if reason == "" {
				reason = "bank_transfer_failed"
			}
			return dropTerminal(log, &event, settler.FailSettlement(ctx, event.PaymentID, reason))
		default:
			log.Error("dropping settlement event with unknown status",
				"payment_id", event.PaymentID,
				"status", event.Status,
			)
			return nil
		}
	}
}

// dropTerminal acknowledges errors that no amount of retrying will fix, such
// as a payment the coordinator has never heard of. Transient failures are
// returned so the consumer retries and eventually dead-letters.
func dropTerminal(log *logger.Logger, event *settlementEvent, err error) error {
	if err == nil {
		return nil
	}

	if apperrors.HasCode(err, apperrors.CodeNotFound) || apperrors.HasCode(err, apperrors.CodeConflict) {
		log.Warn("settlement event not applicable",
			"payment_id", event.PaymentID,
			"status", event.Status,
			"error", err,
		)
		return nil
	}

	return err
}
