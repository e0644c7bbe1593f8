package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"contabot/internal/atlas"
	"contabot/internal/cache"
	"contabot/internal/core"
	"contabot/internal/log"
)

// fakeStore implements Store in memory.
type fakeStore struct {
	users []core.User
	txs   []core.Transaction

	resolveCalls int
	listCalls    int
	created      []core.TransactionDraft

	failResolve error
	failList    error
	failCreate  error
}

func (f *fakeStore) ResolveUser(_ context.Context, digits string) (core.User, error) {
	f.resolveCalls++
	if f.failResolve != nil {
		return core.User{}, f.failResolve
	}
	for _, u := range f.users {
		if u.Phone == digits {
			return u, nil
		}
	}
	return core.User{}, atlas.ErrUserNotFound
}

func (f *fakeStore) ListUsers(context.Context) ([]core.User, error) {
	if f.failResolve != nil {
		return nil, f.failResolve
	}
	return f.users, nil
}

func (f *fakeStore) ListTransactions(_ context.Context, userID string, scope core.Scope) ([]core.Transaction, error) {
	f.listCalls++
	if f.failList != nil {
		return nil, f.failList
	}
	var out []core.Transaction
	for _, t := range f.txs {
		if t.UserID != userID {
			continue
		}
		if !scope.AllTime && (t.Date.Year() != scope.Year || t.Date.Month() != scope.Month) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeStore) CreateTransaction(_ context.Context, userID string, draft core.TransactionDraft) (core.Transaction, error) {
	if f.failCreate != nil {
		return core.Transaction{}, f.failCreate
	}
	f.created = append(f.created, draft)
	tx := core.Transaction{
		ID:                 fmt.Sprintf("t%d", len(f.created)),
		UserID:             userID,
		Kind:               draft.Kind,
		Amount:             draft.Amount,
		Name:               draft.Name,
		Category:           draft.Category,
		Date:               draft.Date,
		DueDay:             draft.DueDay,
		Recurrence:         draft.Recurrence,
		CurrentInstallment: draft.CurrentInstallment,
		TotalInstallments:  draft.TotalInstallments,
	}
	f.txs = append(f.txs, tx)
	return tx, nil
}

type fakePublisher struct {
	sent map[string]string
	fail error
}

func (f *fakePublisher) PublishReply(_ context.Context, phone, text string) error {
	if f.fail != nil {
		return f.fail
	}
	if f.sent == nil {
		f.sent = make(map[string]string)
	}
	f.sent[phone] = text
	return nil
}

const anaPhone = "5511999999999"

// June 10 2025 is a Tuesday; relative dates in tests anchor here.
var testNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func newTestBot(store Store, opts ...Option) *Bot {
	logger := log.New(log.DefaultConfig())
	opts = append(opts, WithClock(func() time.Time { return testNow }))
	return New(store, logger, opts...)
}

func authorizedStore() *fakeStore {
	return &fakeStore{users: []core.User{{ID: "1", Name: "Ana", Phone: anaPhone}}}
}

func TestHandleUnknownPhone(t *testing.T) {
	store := authorizedStore()
	b := newTestBot(store)

	got := b.Handle(context.Background(), "5511777777777", "pagar luz 150")
	if got != "❌ Número não autorizado" {
		t.Fatalf("unexpected reply: %q", got)
	}
	if store.listCalls != 0 || len(store.created) != 0 {
		t.Fatal("unauthorized message must not touch the ledger")
	}
}

func TestHandleResolveErrorReadsAsUnauthorized(t *testing.T) {
	store := authorizedStore()
	store.failResolve = errors.New("store down")
	b := newTestBot(store)

	if got := b.Handle(context.Background(), anaPhone, "saldo"); got != "❌ Número não autorizado" {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestHandleSimpleExpense(t *testing.T) {
	store := authorizedStore()
	b := newTestBot(store)

	got := b.Handle(context.Background(), anaPhone, "pagar luz 150")
	if !strings.HasPrefix(got, "✅") || !strings.Contains(got, "Luz") || !strings.Contains(got, "R$ 150,00") {
		t.Fatalf("unexpected reply: %q", got)
	}
	if len(store.created) != 1 {
		t.Fatalf("created %d drafts, want 1", len(store.created))
	}
	d := store.created[0]
	if d.Kind != core.Expense || d.Amount.Cents != 15000 || d.Category != core.DefaultCategory {
		t.Fatalf("unexpected draft: %+v", d)
	}
	if !d.Date.Equal(core.NewDate(2025, 6, 10).Time) {
		t.Fatalf("date = %v, want today", d.Date)
	}
}

func TestHandleDatedExpense(t *testing.T) {
	store := authorizedStore()
	b := newTestBot(store)

	b.Handle(context.Background(), anaPhone, "ifood 89 ontem")
	if len(store.created) != 1 {
		t.Fatalf("created %d drafts, want 1", len(store.created))
	}
	if !store.created[0].Date.Equal(core.NewDate(2025, 6, 9).Time) {
		t.Fatalf("date = %v, want yesterday", store.created[0].Date)
	}
}

func TestHandleDueExpense(t *testing.T) {
	store := authorizedStore()
	b := newTestBot(store)

	got := b.Handle(context.Background(), anaPhone, "internet 99 dia 28")
	if !strings.Contains(got, "dia 28") {
		t.Fatalf("unexpected reply: %q", got)
	}
	if len(store.created) != 1 {
		t.Fatalf("created %d drafts, want 1", len(store.created))
	}
	d := store.created[0]
	if d.DueDay != 28 || d.Recurrence != core.RecurrenceFixed {
		t.Fatalf("unexpected draft: %+v", d)
	}
	if !d.Date.Equal(core.NewDate(2025, 6, 28).Time) {
		t.Fatalf("date = %v, want 2025-06-28", d.Date)
	}
}

func TestHandleInstallmentsExpand(t *testing.T) {
	store := authorizedStore()
	b := newTestBot(store)

	got := b.Handle(context.Background(), anaPhone, "tv 3000 10x")
	if !strings.Contains(got, "10x") || !strings.Contains(got, "R$ 300,00") {
		t.Fatalf("unexpected reply: %q", got)
	}
	if len(store.created) != 10 {
		t.Fatalf("created %d drafts, want 10", len(store.created))
	}
	for i, d := range store.created {
		wantName := fmt.Sprintf("Tv (%d/10)", i+1)
		if d.Name != wantName {
			t.Fatalf("draft %d name = %q, want %q", i, d.Name, wantName)
		}
		if d.Amount.Cents != 30000 {
			t.Fatalf("draft %d amount = %d, want 30000", i, d.Amount.Cents)
		}
		if d.Recurrence != core.RecurrenceParceled {
			t.Fatalf("draft %d recurrence = %q", i, d.Recurrence)
		}
		wantDate := core.NewDate(2025, 6, 10).AddMonths(i)
		if !d.Date.Equal(wantDate.Time) {
			t.Fatalf("draft %d date = %v, want %v", i, d.Date, wantDate)
		}
	}
}

func TestHandleRecurring(t *testing.T) {
	store := authorizedStore()
	b := newTestBot(store)

	got := b.Handle(context.Background(), anaPhone, "academia 120 todo dia 15")
	if !strings.Contains(got, "todo dia 15") {
		t.Fatalf("unexpected reply: %q", got)
	}
	d := store.created[0]
	if d.Recurrence != core.RecurrenceFixed || d.DueDay != 15 {
		t.Fatalf("unexpected draft: %+v", d)
	}
}

func TestHandleIncome(t *testing.T) {
	store := authorizedStore()
	b := newTestBot(store)

	got := b.Handle(context.Background(), anaPhone, "recebi salario 3000")
	if !strings.Contains(got, "Receita registrada") {
		t.Fatalf("unexpected reply: %q", got)
	}
	if store.created[0].Kind != core.Income {
		t.Fatalf("kind = %q, want income", store.created[0].Kind)
	}
}

func TestHandleCreateFailureFallsBack(t *testing.T) {
	store := authorizedStore()
	store.failCreate = errors.New("store down")
	b := newTestBot(store)

	got := b.Handle(context.Background(), anaPhone, "pagar luz 150")
	if !strings.HasPrefix(got, "❓") {
		t.Fatalf("write failure must fall back to the unknown reply, got %q", got)
	}
}

func TestHandleBalance(t *testing.T) {
	store := authorizedStore()
	store.txs = []core.Transaction{
		{UserID: "1", Kind: core.Income, Amount: core.Money{Cents: 50000}, Name: "Salario", Date: core.NewDate(2025, 6, 1)},
		{UserID: "1", Kind: core.Expense, Amount: core.Money{Cents: 10000}, Name: "Luz", Date: core.NewDate(2025, 6, 5)},
	}
	b := newTestBot(store)

	got := b.Handle(context.Background(), anaPhone, "saldo")
	if !strings.Contains(got, "📊 STATUS:") || !strings.Contains(got, "R$ 400,00") {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestHandleReadFailureRendersEmpty(t *testing.T) {
	store := authorizedStore()
	store.failList = errors.New("store down")
	b := newTestBot(store)

	got := b.Handle(context.Background(), anaPhone, "contas a pagar")
	if !strings.Contains(got, "Nenhuma conta") {
		t.Fatalf("read failure must render the empty report, got %q", got)
	}
}

func TestHandleMonthlyStatementScope(t *testing.T) {
	store := authorizedStore()
	store.txs = []core.Transaction{
		{UserID: "1", Kind: core.Expense, Amount: core.Money{Cents: 5000}, Name: "Luz", Date: core.NewDate(2025, 1, 10)},
		{UserID: "1", Kind: core.Expense, Amount: core.Money{Cents: 7000}, Name: "Internet", Date: core.NewDate(2025, 6, 3)},
	}
	b := newTestBot(store)

	got := b.Handle(context.Background(), anaPhone, "extrato janeiro")
	if !strings.Contains(got, "JANEIRO") || !strings.Contains(got, "Luz") {
		t.Fatalf("unexpected reply: %q", got)
	}
	if strings.Contains(got, "Internet") {
		t.Fatalf("statement leaked another month: %q", got)
	}
}

func TestHandleYearlyStatement(t *testing.T) {
	store := authorizedStore()
	store.txs = []core.Transaction{
		{UserID: "1", Kind: core.Expense, Amount: core.Money{Cents: 5000}, Name: "Luz", Date: core.NewDate(2024, 3, 10)},
	}
	b := newTestBot(store)

	got := b.Handle(context.Background(), anaPhone, "extrato 2024")
	if !strings.Contains(got, "EXTRATO DE 2024") || !strings.Contains(got, "Março") {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestHandleUnknownText(t *testing.T) {
	b := newTestBot(authorizedStore())

	got := b.Handle(context.Background(), anaPhone, "bom dia")
	if !strings.HasPrefix(got, "❓") {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestHandleHelp(t *testing.T) {
	b := newTestBot(authorizedStore())

	got := b.Handle(context.Background(), anaPhone, "ajuda")
	if !strings.Contains(got, "COMANDOS") {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestHandleUsesCache(t *testing.T) {
	store := authorizedStore()
	users := cache.NewUserCache(10, time.Minute)
	b := newTestBot(store, WithUserCache(users))

	b.Handle(context.Background(), anaPhone, "saldo")
	b.Handle(context.Background(), anaPhone, "saldo")

	if store.resolveCalls != 1 {
		t.Fatalf("resolve calls = %d, want 1 (second hit cached)", store.resolveCalls)
	}
}

func TestDailyReminders(t *testing.T) {
	store := authorizedStore()
	store.users = append(store.users, core.User{ID: "2", Name: "Bruno", Phone: "5511888888888"})
	store.txs = []core.Transaction{
		{UserID: "1", Kind: core.Expense, Amount: core.Money{Cents: 15000}, Name: "Luz", Date: core.NewDate(2025, 6, 10)},
		// Bruno has nothing due soon.
		{UserID: "2", Kind: core.Expense, Amount: core.Money{Cents: 9900}, Name: "Internet", Date: core.NewDate(2025, 6, 1)},
	}
	pub := &fakePublisher{}
	b := newTestBot(store, WithPublisher(pub))

	if err := b.DailyReminders(context.Background()); err != nil {
		t.Fatalf("DailyReminders: %v", err)
	}
	if _, ok := pub.sent[anaPhone]; !ok {
		t.Fatal("Ana has a bill due today and must get a reminder")
	}
	if _, ok := pub.sent["5511888888888"]; ok {
		t.Fatal("Bruno has nothing due and must not get a reminder")
	}
}

func TestDailyRemindersWithoutPublisher(t *testing.T) {
	b := newTestBot(authorizedStore())
	if err := b.DailyReminders(context.Background()); err == nil {
		t.Fatal("expected an error without a publisher")
	}
}
