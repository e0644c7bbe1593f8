// Package atlas is the HTTP client for the remote user and transaction
// store. The store owns all persisted state; this client only reads
// snapshots and submits drafts.
package atlas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"time"

	"contabot/internal/core"
)

// ErrUserNotFound is returned when no user matches the phone digits.
var ErrUserNotFound = errors.New("user not found")

// Client talks to the Atlas API with admin credentials. The bearer token is
// obtained lazily and refreshed once on a 401.
type Client struct {
	baseURL  string
	phone    string
	password string
	http     *http.Client

	mu    sync.Mutex
	token string
}

// NewClient creates an Atlas client. baseURL must not end with a slash.
func NewClient(baseURL, adminPhone, adminPassword string) *Client {
	return &Client{
		baseURL:  baseURL,
		phone:    adminPhone,
		password: adminPassword,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type userRecord struct {
	ID    json.Number `json:"id"`
	Name  string      `json:"name"`
	Phone string      `json:"phone"`
}

type transactionRecord struct {
	ID                 json.Number `json:"id"`
	UserID             json.Number `json:"user_id"`
	Type               string      `json:"type"`
	Amount             float64     `json:"amount"`
	Name               string      `json:"name"`
	Category           string      `json:"category"`
	Date               string      `json:"date"`
	DueDay             int         `json:"due_day,omitempty"`
	RecurrenceType     string      `json:"recurrence_type,omitempty"`
	CurrentInstallment int         `json:"current_installment,omitempty"`
	TotalInstallments  int         `json:"total_installments,omitempty"`
}

type createRequest struct {
	UserID             string  `json:"user_id"`
	Type               string  `json:"type"`
	Amount             float64 `json:"amount"`
	Name               string  `json:"name"`
	Category           string  `json:"category"`
	Date               string  `json:"date"`
	DueDay             int     `json:"due_day,omitempty"`
	RecurrenceType     string  `json:"recurrence_type,omitempty"`
	CurrentInstallment int     `json:"current_installment,omitempty"`
	TotalInstallments  int     `json:"total_installments,omitempty"`
}

// ResolveUser finds the user whose phone equals the given digits.
func (c *Client) ResolveUser(ctx context.Context, phoneDigits string) (core.User, error) {
	var records []userRecord
	if err := c.get(ctx, "/admin/users", &records); err != nil {
		return core.User{}, fmt.Errorf("list users: %w", err)
	}
	for _, r := range records {
		if core.NormalizePhone(r.Phone) == phoneDigits {
			return core.User{ID: r.ID.String(), Name: r.Name, Phone: core.NormalizePhone(r.Phone)}, nil
		}
	}
	return core.User{}, ErrUserNotFound
}

// ListUsers returns every registered user.
func (c *Client) ListUsers(ctx context.Context) ([]core.User, error) {
	var records []userRecord
	if err := c.get(ctx, "/admin/users", &records); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]core.User, 0, len(records))
	for _, r := range records {
		users = append(users, core.User{ID: r.ID.String(), Name: r.Name, Phone: core.NormalizePhone(r.Phone)})
	}
	return users, nil
}

// ListTransactions fetches one user's transactions for the scope. The API
// returns all users' records for the period; filtering happens here.
func (c *Client) ListTransactions(ctx context.Context, userID string, scope core.Scope) ([]core.Transaction, error) {
	path := "/transactions"
	if !scope.AllTime {
		path = fmt.Sprintf("/transactions/%d/%d", scope.Year, scope.Month)
	}
	var records []transactionRecord
	if err := c.get(ctx, path, &records); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	var txs []core.Transaction
	for _, r := range records {
		if r.UserID.String() != userID {
			continue
		}
		tx, err := r.toDomain()
		if err != nil {
			slog.WarnContext(ctx, "Skipping malformed transaction", "id", r.ID.String(), "error", err)
			continue
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// CreateTransaction submits one draft and returns the stored record.
func (c *Client) CreateTransaction(ctx context.Context, userID string, draft core.TransactionDraft) (core.Transaction, error) {
	if err := draft.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("validate draft: %w", err)
	}
	body := createRequest{
		UserID:             userID,
		Type:               string(draft.Kind),
		Amount:             draft.Amount.Reais(),
		Name:               draft.Name,
		Category:           draft.Category,
		Date:               draft.Date.Format("2006-01-02"),
		DueDay:             draft.DueDay,
		RecurrenceType:     recurrenceWire(draft.Recurrence),
		CurrentInstallment: draft.CurrentInstallment,
		TotalInstallments:  draft.TotalInstallments,
	}
	var record transactionRecord
	if err := c.post(ctx, "/transactions", body, &record); err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	tx, err := record.toDomain()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("decode created transaction: %w", err)
	}
	return tx, nil
}

func (r transactionRecord) toDomain() (core.Transaction, error) {
	date, err := time.Parse("2006-01-02", r.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse date %q: %w", r.Date, err)
	}
	kind := core.Kind(r.Type)
	if !kind.Valid() {
		return core.Transaction{}, fmt.Errorf("unknown transaction type %q", r.Type)
	}
	recurrence := core.RecurrenceType(r.RecurrenceType)
	if recurrence == "" {
		recurrence = core.RecurrenceNone
	}
	return core.Transaction{
		ID:                 r.ID.String(),
		UserID:             r.UserID.String(),
		Kind:               kind,
		Amount:             core.Money{Cents: int64(math.Round(r.Amount * 100))},
		Name:               r.Name,
		Category:           r.Category,
		Date:               core.DateOf(date),
		DueDay:             r.DueDay,
		Recurrence:         recurrence,
		CurrentInstallment: r.CurrentInstallment,
		TotalInstallments:  r.TotalInstallments,
	}, nil
}

func recurrenceWire(r core.RecurrenceType) string {
	if r == "" || r == core.RecurrenceNone {
		return ""
	}
	return string(r)
}

// ensureToken logs in if no token is held yet.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return c.token, nil
	}
	token, err := c.login(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	return token, nil
}

// refreshToken discards the held token and logs in again.
func (c *Client) refreshToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	token, err := c.login(ctx)
	if err != nil {
		c.token = ""
		return "", err
	}
	c.token = token
	return token, nil
}

func (c *Client) login(ctx context.Context) (string, error) {
	payload, err := json.Marshal(loginRequest{Phone: c.phone, Password: c.password})
	if err != nil {
		return "", fmt.Errorf("marshal login: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login: unexpected status %d", resp.StatusCode)
	}
	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	if lr.Token == "" {
		return "", errors.New("login: empty token")
	}
	return lr.Token, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, payload, out)
}

// do performs one authenticated request, retrying a single time with a fresh
// token on 401.
func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return err
	}
	status, err := c.doOnce(ctx, method, path, body, token, out)
	if err == nil {
		return nil
	}
	if status != http.StatusUnauthorized {
		return err
	}
	token, err = c.refreshToken(ctx)
	if err != nil {
		return err
	}
	_, err = c.doOnce(ctx, method, path, body, token, out)
	return err
}

func (c *Client) doOnce(ctx context.Context, method, path string, body []byte, token string, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s response: %w", path, err)
	}
	return resp.StatusCode, nil
}
