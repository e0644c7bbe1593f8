package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"contabot/internal/amqp"
	"contabot/internal/log"
	"contabot/internal/outbox"
)

type fakeSender struct {
	sent     []string
	failNext int
}

func (f *fakeSender) SendText(_ context.Context, phone, text string) error {
	if f.failNext > 0 {
		f.failNext--
		return errors.New("gateway down")
	}
	f.sent = append(f.sent, phone+": "+text)
	return nil
}

func newTestWorker(t *testing.T, sender Sender) (*DeliveryWorker, *outbox.Repository) {
	t.Helper()
	repo, err := outbox.NewRepository(filepath.Join(t.TempDir(), "outbox.db"))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	logger := log.New(log.DefaultConfig())
	return NewDeliveryWorker(repo, sender, logger, 10, 3), repo
}

func TestHandleReplyMessageDelivers(t *testing.T) {
	sender := &fakeSender{}
	w, repo := newTestWorker(t, sender)
	ctx := context.Background()

	msg := amqp.NewReplyMessage("5511999999999", "✅ Despesa registrada")
	if err := w.HandleReplyMessage(ctx, msg); err != nil {
		t.Fatalf("HandleReplyMessage: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sender.sent))
	}

	pending, _ := repo.ListPending(ctx, 10)
	if len(pending) != 0 {
		t.Fatal("delivered message must not stay pending")
	}
}

func TestHandleReplyMessageJournalsFailures(t *testing.T) {
	sender := &fakeSender{failNext: 1}
	w, repo := newTestWorker(t, sender)
	ctx := context.Background()

	msg := amqp.NewReplyMessage("5511999999999", "oi")
	// A send failure is not an error: the row stays pending for retry.
	if err := w.HandleReplyMessage(ctx, msg); err != nil {
		t.Fatalf("HandleReplyMessage: %v", err)
	}
	pending, _ := repo.ListPending(ctx, 10)
	if len(pending) != 1 || pending[0].Attempts != 1 {
		t.Fatalf("unexpected pending set: %+v", pending)
	}
}

func TestProcessPendingDeliveriesRetries(t *testing.T) {
	sender := &fakeSender{failNext: 1}
	w, repo := newTestWorker(t, sender)
	ctx := context.Background()

	w.HandleReplyMessage(ctx, amqp.NewReplyMessage("5511999999999", "oi"))

	if err := w.ProcessPendingDeliveries(ctx); err != nil {
		t.Fatalf("ProcessPendingDeliveries: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("retry did not deliver: %v", sender.sent)
	}
	pending, _ := repo.ListPending(ctx, 10)
	if len(pending) != 0 {
		t.Fatal("retried message must leave the pending set")
	}
}

func TestRetriesStopAtMaxAttempts(t *testing.T) {
	sender := &fakeSender{failNext: 10}
	w, repo := newTestWorker(t, sender)
	ctx := context.Background()

	w.HandleReplyMessage(ctx, amqp.NewReplyMessage("5511999999999", "oi"))
	w.ProcessPendingDeliveries(ctx)
	w.ProcessPendingDeliveries(ctx)

	pending, _ := repo.ListPending(ctx, 10)
	if len(pending) != 0 {
		t.Fatal("exhausted delivery must move to failed")
	}
	if len(sender.sent) != 0 {
		t.Fatalf("nothing should have been sent: %v", sender.sent)
	}
}
