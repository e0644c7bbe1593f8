// Package outbox journals outbound deliveries in SQLite. Every reply taken
// off the queue lands here before the gateway call, so a crash between
// consume and send leaves a pending row instead of a lost message.
package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Delivery statuses.
const (
	StatusPending   = "pending"
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
)

// Delivery is one journaled outbound message.
type Delivery struct {
	ID          int64
	Phone       string
	Body        string
	Status      string
	Attempts    int
	CreatedAt   time.Time
	DeliveredAt sql.NullTime
}

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Enqueue journals one pending delivery and returns its id.
func (r *Repository) Enqueue(ctx context.Context, phone, body string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO deliveries (phone, body, status) VALUES (?, ?, ?)`,
		phone, body, StatusPending)
	if err != nil {
		return 0, fmt.Errorf("enqueue delivery: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read delivery id: %w", err)
	}
	return id, nil
}

// MarkDelivered closes a delivery after a successful gateway send.
func (r *Repository) MarkDelivered(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE deliveries SET status = ?, delivered_at = CURRENT_TIMESTAMP WHERE id = ?`,
		StatusDelivered, id)
	if err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	return nil
}

// MarkFailed bumps the attempt counter. Once maxAttempts is reached the row
// moves to failed and retries stop picking it up.
func (r *Repository) MarkFailed(ctx context.Context, id int64, maxAttempts int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE deliveries
		 SET attempts = attempts + 1,
		     status = CASE WHEN attempts + 1 >= ? THEN ? ELSE ? END
		 WHERE id = ?`,
		maxAttempts, StatusFailed, StatusPending, id)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// ListPending returns up to limit deliveries still waiting, oldest first.
func (r *Repository) ListPending(ctx context.Context, limit int) ([]Delivery, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, phone, body, status, attempts, created_at, delivered_at
		 FROM deliveries WHERE status = ? ORDER BY id LIMIT ?`,
		StatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending deliveries: %w", err)
	}
	defer rows.Close()

	var out []Delivery
	for rows.Next() {
		var d Delivery
		if err := rows.Scan(&d.ID, &d.Phone, &d.Body, &d.Status, &d.Attempts, &d.CreatedAt, &d.DeliveredAt); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deliveries: %w", err)
	}
	return out, nil
}

// Get fetches one delivery by id.
func (r *Repository) Get(ctx context.Context, id int64) (Delivery, error) {
	var d Delivery
	err := r.db.QueryRowContext(ctx,
		`SELECT id, phone, body, status, attempts, created_at, delivered_at
		 FROM deliveries WHERE id = ?`, id).
		Scan(&d.ID, &d.Phone, &d.Body, &d.Status, &d.Attempts, &d.CreatedAt, &d.DeliveredAt)
	if err != nil {
		return Delivery{}, fmt.Errorf("get delivery: %w", err)
	}
	return d, nil
}
