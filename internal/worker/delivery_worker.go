// Package worker drains the reply queue into the messaging gateway.
//
// Every consumed reply is journaled to the outbox before the gateway call,
// then acked. Failed sends stay pending in the outbox and a periodic retry
// loop picks them up, so a gateway outage delays messages instead of losing
// them.
package worker

import (
	"context"
	"fmt"
	"time"

	"contabot/internal/amqp"
	"contabot/internal/log"
	"contabot/internal/outbox"
)

// Sender pushes one text message to a phone.
type Sender interface {
	SendText(ctx context.Context, phone, text string) error
}

// DeliveryWorker journals and delivers outbound replies.
type DeliveryWorker struct {
	outbox      *outbox.Repository
	sender      Sender
	logger      *log.Logger
	batchSize   int
	maxAttempts int
}

func NewDeliveryWorker(repo *outbox.Repository, sender Sender, logger *log.Logger, batchSize, maxAttempts int) *DeliveryWorker {
	return &DeliveryWorker{
		outbox:      repo,
		sender:      sender,
		logger:      logger.WithComponent(log.ComponentWorker),
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
	}
}

// HandleReplyMessage processes one consumed reply. An error is returned only
// when journaling fails; once the row exists the message is considered
// accepted and delivery failures are handled by the retry loop.
func (w *DeliveryWorker) HandleReplyMessage(ctx context.Context, msg *amqp.ReplyMessage) error {
	id, err := w.outbox.Enqueue(ctx, msg.Phone, msg.Text)
	if err != nil {
		return fmt.Errorf("journal delivery: %w", err)
	}

	w.deliver(ctx, id, msg.Phone, msg.Text)
	return nil
}

func (w *DeliveryWorker) deliver(ctx context.Context, id int64, phone, text string) {
	if err := w.sender.SendText(ctx, phone, text); err != nil {
		w.logger.WarnContext(ctx, "Delivery failed, will retry",
			log.FieldDeliveryID, id,
			log.FieldPhone, phone,
			log.FieldError, err.Error())
		if err := w.outbox.MarkFailed(ctx, id, w.maxAttempts); err != nil {
			w.logger.ErrorContext(ctx, "Failed to mark delivery failed",
				log.FieldDeliveryID, id, log.FieldError, err.Error())
		}
		return
	}
	if err := w.outbox.MarkDelivered(ctx, id); err != nil {
		w.logger.ErrorContext(ctx, "Failed to mark delivery done",
			log.FieldDeliveryID, id, log.FieldError, err.Error())
		return
	}
	w.logger.InfoContext(ctx, "Reply delivered",
		log.FieldDeliveryID, id, log.FieldPhone, phone)
}

// ProcessPendingDeliveries retries one batch of pending rows, oldest first.
func (w *DeliveryWorker) ProcessPendingDeliveries(ctx context.Context) error {
	pending, err := w.outbox.ListPending(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending deliveries: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	w.logger.InfoContext(ctx, "Retrying pending deliveries", "count", len(pending))
	for _, d := range pending {
		w.deliver(ctx, d.ID, d.Phone, d.Body)
	}
	return nil
}

// RunRetryLoop retries pending deliveries on a fixed interval until the
// context is cancelled.
func (w *DeliveryWorker) RunRetryLoop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "Stopping retry loop", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			if err := w.ProcessPendingDeliveries(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Retry pass failed", log.FieldError, err.Error())
			}
		}
	}
}
