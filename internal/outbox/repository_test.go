package outbox

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "outbox.db"))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestEnqueueAndListPending(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	id1, err := repo.Enqueue(ctx, "5511999999999", "✅ Despesa registrada")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	id2, err := repo.Enqueue(ctx, "5511888888888", "📋 CONTAS A PAGAR:")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	pending, err := repo.ListPending(ctx, 10)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("got %d pending, want 2", len(pending))
	}
	if pending[0].ID != id1 || pending[1].ID != id2 {
		t.Fatal("pending deliveries must come back oldest first")
	}
	if pending[0].Status != StatusPending || pending[0].Attempts != 0 {
		t.Fatalf("unexpected row: %+v", pending[0])
	}
}

func TestMarkDelivered(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	id, _ := repo.Enqueue(ctx, "5511999999999", "oi")
	if err := repo.MarkDelivered(ctx, id); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}

	d, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if d.Status != StatusDelivered || !d.DeliveredAt.Valid {
		t.Fatalf("unexpected row: %+v", d)
	}

	pending, _ := repo.ListPending(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("delivered rows must leave the pending set, got %d", len(pending))
	}
}

func TestMarkFailedKeepsRetryingUntilCap(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	id, _ := repo.Enqueue(ctx, "5511999999999", "oi")

	if err := repo.MarkFailed(ctx, id, 3); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	d, _ := repo.Get(ctx, id)
	if d.Status != StatusPending || d.Attempts != 1 {
		t.Fatalf("after 1 failure: %+v", d)
	}

	repo.MarkFailed(ctx, id, 3)
	repo.MarkFailed(ctx, id, 3)
	d, _ = repo.Get(ctx, id)
	if d.Status != StatusFailed || d.Attempts != 3 {
		t.Fatalf("after 3 failures: %+v", d)
	}

	pending, _ := repo.ListPending(ctx, 10)
	if len(pending) != 0 {
		t.Fatal("failed rows must leave the pending set")
	}
}

func TestListPendingLimit(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		repo.Enqueue(ctx, "5511999999999", "oi")
	}
	pending, err := repo.ListPending(ctx, 2)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("got %d pending, want 2", len(pending))
	}
}
