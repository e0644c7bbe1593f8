package atlas

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"contabot/internal/core"
)

// fakeAtlas serves the subset of the store API the client touches.
type fakeAtlas struct {
	token     string
	logins    int
	created   []map[string]any
	expireOne bool // reject the first authenticated call to force a refresh
	rejected  bool
}

func (f *fakeAtlas) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		f.logins++
		var body struct {
			Phone    string `json:"phone"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Phone == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"token": f.token})
	})
	auth := func(w http.ResponseWriter, r *http.Request) bool {
		if f.expireOne && !f.rejected {
			f.rejected = true
			w.WriteHeader(http.StatusUnauthorized)
			return false
		}
		if r.Header.Get("Authorization") != "Bearer "+f.token {
			w.WriteHeader(http.StatusUnauthorized)
			return false
		}
		return true
	}
	mux.HandleFunc("GET /admin/users", func(w http.ResponseWriter, r *http.Request) {
		if !auth(w, r) {
			return
		}
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": 1, "name": "Ana", "phone": "+55 (11) 99999-9999"},
			{"id": 2, "name": "Bruno", "phone": "5511888888888"},
		})
	})
	mux.HandleFunc("GET /transactions/{year}/{month}", func(w http.ResponseWriter, r *http.Request) {
		if !auth(w, r) {
			return
		}
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": 10, "user_id": 1, "type": "expense", "amount": 150.0, "name": "Luz", "category": "luz", "date": "2025-06-10"},
			{"id": 11, "user_id": 2, "type": "expense", "amount": 99.9, "name": "Internet", "category": "internet", "date": "2025-06-05"},
			{"id": 12, "user_id": 1, "type": "income", "amount": 3000.0, "name": "Salario", "category": "outros", "date": "2025-06-01"},
			{"id": 13, "user_id": 1, "type": "expense", "amount": 10.0, "name": "Quebrado", "category": "outros", "date": "not-a-date"},
		})
	})
	mux.HandleFunc("GET /transactions", func(w http.ResponseWriter, r *http.Request) {
		if !auth(w, r) {
			return
		}
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": 20, "user_id": 1, "type": "expense", "amount": 42.0, "name": "Antiga", "category": "outros", "date": "2024-01-15"},
		})
	})
	mux.HandleFunc("POST /transactions", func(w http.ResponseWriter, r *http.Request) {
		if !auth(w, r) {
			return
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.created = append(f.created, body)
		// The store assigns numeric ids; echo the draft back that way.
		resp := make(map[string]any, len(body)+1)
		for k, v := range body {
			resp[k] = v
		}
		resp["id"] = 99
		resp["user_id"] = 1
		json.NewEncoder(w).Encode(resp)
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeAtlas) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "5511000000000", "secret")
}

func TestResolveUser(t *testing.T) {
	c := newTestClient(t, &fakeAtlas{token: "tok"})

	u, err := c.ResolveUser(context.Background(), "5511999999999")
	if err != nil {
		t.Fatalf("ResolveUser: %v", err)
	}
	if u.ID != "1" || u.Name != "Ana" || u.Phone != "5511999999999" {
		t.Fatalf("unexpected user: %+v", u)
	}
}

func TestResolveUserNotFound(t *testing.T) {
	c := newTestClient(t, &fakeAtlas{token: "tok"})

	_, err := c.ResolveUser(context.Background(), "5511777777777")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestListTransactionsFiltersAndConverts(t *testing.T) {
	c := newTestClient(t, &fakeAtlas{token: "tok"})

	txs, err := c.ListTransactions(context.Background(), "1", core.MonthScope(2025, 6))
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	// Other users' records and the malformed row are dropped.
	if len(txs) != 2 {
		t.Fatalf("got %d transactions, want 2", len(txs))
	}
	if txs[0].Amount.Cents != 15000 {
		t.Fatalf("amount = %d cents, want 15000", txs[0].Amount.Cents)
	}
	if txs[0].Recurrence != core.RecurrenceNone {
		t.Fatalf("recurrence = %q, want none", txs[0].Recurrence)
	}
	if txs[1].Kind != core.Income {
		t.Fatalf("kind = %q, want income", txs[1].Kind)
	}
}

func TestListTransactionsAllTime(t *testing.T) {
	c := newTestClient(t, &fakeAtlas{token: "tok"})

	txs, err := c.ListTransactions(context.Background(), "1", core.AllTimeScope())
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(txs) != 1 || txs[0].Name != "Antiga" {
		t.Fatalf("unexpected transactions: %+v", txs)
	}
}

func TestCreateTransaction(t *testing.T) {
	f := &fakeAtlas{token: "tok"}
	c := newTestClient(t, f)

	draft := core.TransactionDraft{
		Kind:     core.Expense,
		Amount:   core.Money{Cents: 8990},
		Name:     "Ifood",
		Category: "ifood",
		Date:     core.NewDate(2025, 6, 9),
	}
	tx, err := c.CreateTransaction(context.Background(), "1", draft)
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if tx.ID != "99" || tx.Amount.Cents != 8990 {
		t.Fatalf("unexpected transaction: %+v", tx)
	}
	if len(f.created) != 1 {
		t.Fatalf("server saw %d creates, want 1", len(f.created))
	}
	if got := f.created[0]["date"]; got != "2025-06-09" {
		t.Fatalf("date on the wire = %v, want 2025-06-09", got)
	}
}

func TestCreateRejectsInvalidDraft(t *testing.T) {
	f := &fakeAtlas{token: "tok"}
	c := newTestClient(t, f)

	_, err := c.CreateTransaction(context.Background(), "1", core.TransactionDraft{
		Kind: core.Expense,
		Name: "Luz",
		Date: core.NewDate(2025, 6, 10),
	})
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if len(f.created) != 0 {
		t.Fatal("invalid draft must not reach the server")
	}
}

func TestTokenRefreshOn401(t *testing.T) {
	f := &fakeAtlas{token: "tok", expireOne: true}
	c := newTestClient(t, f)

	if _, err := c.ResolveUser(context.Background(), "5511999999999"); err != nil {
		t.Fatalf("ResolveUser after refresh: %v", err)
	}
	if f.logins != 2 {
		t.Fatalf("logins = %d, want 2 (initial + refresh)", f.logins)
	}
}

func TestLoginFailureSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "5511000000000", "wrong")
	_, err := c.ResolveUser(context.Background(), "5511999999999")
	if err == nil || !strings.Contains(err.Error(), "login") {
		t.Fatalf("expected login error, got %v", err)
	}
}
