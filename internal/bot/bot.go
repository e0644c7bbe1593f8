// Package bot orchestrates one message turn: authorize the sender, classify
// the text, execute the command against the store and render the reply.
//
// The bot holds no state of its own. Authorization and ledger data live in
// the remote store; the only local state is an optional lookup cache.
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"contabot/internal/atlas"
	"contabot/internal/cache"
	"contabot/internal/core"
	"contabot/internal/intent"
	"contabot/internal/log"
	"contabot/internal/render"
	"contabot/internal/report"
)

// Store is the remote ledger the bot reads from and writes to.
type Store interface {
	ResolveUser(ctx context.Context, phoneDigits string) (core.User, error)
	ListUsers(ctx context.Context) ([]core.User, error)
	ListTransactions(ctx context.Context, userID string, scope core.Scope) ([]core.Transaction, error)
	CreateTransaction(ctx context.Context, userID string, draft core.TransactionDraft) (core.Transaction, error)
}

// Publisher carries outbound messages the bot initiates itself, such as the
// daily bill reminders. Webhook replies do not go through it.
type Publisher interface {
	PublishReply(ctx context.Context, phone, text string) error
}

// Bot wires the classifier, the store and the renderer together.
type Bot struct {
	store     Store
	users     *cache.UserCache
	publisher Publisher
	logger    *log.Logger
	now       func() time.Time
}

// Option configures optional collaborators.
type Option func(*Bot)

// WithUserCache enables phone lookup caching.
func WithUserCache(c *cache.UserCache) Option {
	return func(b *Bot) { b.users = c }
}

// WithPublisher enables proactive messages (reminders).
func WithPublisher(p Publisher) Option {
	return func(b *Bot) { b.publisher = p }
}

// WithClock overrides the time source. Tests use this to anchor dates.
func WithClock(now func() time.Time) Option {
	return func(b *Bot) { b.now = now }
}

// New creates a Bot around a store.
func New(store Store, logger *log.Logger, opts ...Option) *Bot {
	b := &Bot{
		store:  store,
		logger: logger.WithComponent(log.ComponentBot),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Handle processes one inbound message and returns the reply text. It never
// returns an error: every failure folds into a fixed reply so the sender
// always hears something.
func (b *Bot) Handle(ctx context.Context, phone, text string) string {
	digits := core.NormalizePhone(phone)

	user, ok := b.lookupUser(ctx, digits)
	if !ok {
		return render.NotAuthorized()
	}

	today := core.DateOf(b.now())
	it := intent.Classify(text, today)
	b.logger.InfoContext(ctx, "Message classified",
		log.FieldPhone, digits,
		log.FieldIntent, it.Kind.String(),
		log.FieldMessageLen, len(text))

	switch {
	case it.Kind == intent.Unknown:
		return render.Unknown()
	case it.Kind == intent.Help:
		return render.Help()
	case it.Kind.IsRegister():
		return b.register(ctx, user, it)
	default:
		return b.query(ctx, user, it, today)
	}
}

// lookupUser resolves the sender, consulting the cache first. Any resolution
// failure reads as not authorized; a transient store outage must never leak
// ledger access.
func (b *Bot) lookupUser(ctx context.Context, digits string) (core.User, bool) {
	if b.users != nil {
		if user, hit := b.users.Get(digits); hit {
			return user, true
		}
	}
	user, err := b.store.ResolveUser(ctx, digits)
	if err != nil {
		if !errors.Is(err, atlas.ErrUserNotFound) {
			b.logger.ErrorContext(ctx, "User resolution failed",
				log.FieldPhone, digits, log.FieldError, err.Error())
		}
		return core.User{}, false
	}
	if b.users != nil {
		b.users.Set(digits, user)
	}
	return user, true
}

func (b *Bot) register(ctx context.Context, user core.User, it intent.Intent) string {
	drafts, reply := buildDrafts(it)
	for _, draft := range drafts {
		if _, err := b.store.CreateTransaction(ctx, user.ID, draft); err != nil {
			b.logger.ErrorContext(ctx, "Transaction create failed",
				log.FieldUserID, user.ID,
				log.FieldIntent, it.Kind.String(),
				log.FieldAmountCents, draft.Amount.Cents,
				log.FieldError, err.Error())
			return render.Unknown()
		}
	}
	return reply
}

// buildDrafts expands one register intent into the store writes it implies
// plus the confirmation reply. Installment purchases expand into one draft
// per installment; each gets the integer share of the total.
func buildDrafts(it intent.Intent) ([]core.TransactionDraft, string) {
	switch it.Kind {
	case intent.RegisterExpense, intent.RegisterExpenseDated:
		reply := render.ExpenseRegistered(it)
		return []core.TransactionDraft{{
			Kind:     core.Expense,
			Amount:   it.Amount,
			Name:     it.Name,
			Category: core.DefaultCategory,
			Date:     it.Date,
		}}, reply

	case intent.RegisterExpenseDue:
		return []core.TransactionDraft{{
			Kind:       core.Expense,
			Amount:     it.Amount,
			Name:       it.Name,
			Category:   core.DefaultCategory,
			Date:       it.Date,
			DueDay:     it.DueDay,
			Recurrence: core.RecurrenceFixed,
		}}, render.DueExpenseRegistered(it)

	case intent.RegisterRecurring:
		return []core.TransactionDraft{{
			Kind:       core.Expense,
			Amount:     it.Amount,
			Name:       it.Name,
			Category:   core.DefaultCategory,
			Date:       it.Date,
			DueDay:     it.DueDay,
			Recurrence: core.RecurrenceFixed,
		}}, render.RecurringRegistered(it)

	case intent.RegisterInstallment:
		per := it.Amount.DivideBy(it.Installments)
		drafts := make([]core.TransactionDraft, 0, it.Installments)
		for i := 1; i <= it.Installments; i++ {
			drafts = append(drafts, core.TransactionDraft{
				Kind:               core.Expense,
				Amount:             per,
				Name:               fmt.Sprintf("%s (%d/%d)", it.Name, i, it.Installments),
				Category:           core.DefaultCategory,
				Date:               it.Date.AddMonths(i - 1),
				Recurrence:         core.RecurrenceParceled,
				CurrentInstallment: i,
				TotalInstallments:  it.Installments,
			})
		}
		return drafts, render.InstallmentRegistered(it, per)

	case intent.RegisterIncome:
		return []core.TransactionDraft{{
			Kind:     core.Income,
			Amount:   it.Amount,
			Name:     it.Name,
			Category: core.DefaultCategory,
			Date:     it.Date,
		}}, render.IncomeRegistered(it)
	}
	return nil, render.Unknown()
}

func (b *Bot) query(ctx context.Context, user core.User, it intent.Intent, today core.Date) string {
	txs := b.listTransactions(ctx, user.ID, scopeFor(it, today))

	switch it.Kind {
	case intent.Balance:
		return render.Balance(report.BuildBalance(txs, today))
	case intent.BillsDue:
		return render.BillsDue(report.BuildBillsDue(txs, today))
	case intent.TopExpenses:
		return render.TopExpenses(report.TopExpenses(txs, today, report.TopExpensesLimit))
	case intent.NextMonth:
		return render.NextMonth(report.BuildNextMonth(txs, today))
	case intent.Breakdown:
		return render.Breakdown(report.BuildBreakdown(txs, today))
	case intent.Category:
		return render.Category(report.BuildCategory(txs, today, it.Category))
	case intent.WeeklySummary:
		return render.Weekly(report.BuildWeekly(txs, today))
	case intent.MonthComparison:
		return render.Comparison(report.BuildComparison(txs, today))
	case intent.MonthlyStatement:
		return render.Statement(report.BuildStatement(txs, it.Year, it.Month))
	case intent.YearlyStatement:
		return render.YearLedger(report.BuildYearLedger(txs, it.Year))
	}
	return render.Unknown()
}

// scopeFor picks the narrowest fetch that still satisfies the report.
func scopeFor(it intent.Intent, today core.Date) core.Scope {
	switch it.Kind {
	case intent.BillsDue, intent.TopExpenses, intent.Breakdown, intent.Category:
		return core.MonthScope(today.Year(), today.Month())
	case intent.NextMonth:
		year, month := report.NextPeriod(today)
		return core.MonthScope(year, month)
	case intent.MonthlyStatement:
		return core.MonthScope(it.Year, it.Month)
	case intent.WeeklySummary, intent.MonthComparison:
		// Both may straddle a month boundary; fetch wide and filter locally.
		return core.AllTimeScope()
	default:
		return core.AllTimeScope()
	}
}

// listTransactions degrades read failures to an empty ledger. Reports render
// their zero state instead of surfacing an error to the sender.
func (b *Bot) listTransactions(ctx context.Context, userID string, scope core.Scope) []core.Transaction {
	txs, err := b.store.ListTransactions(ctx, userID, scope)
	if err != nil {
		b.logger.WarnContext(ctx, "Transaction fetch failed, treating as empty",
			log.FieldUserID, userID, log.FieldError, err.Error())
		return nil
	}
	return txs
}

// DailyReminders sends every user with bills due soon their bills-due report.
// Requires a Publisher; designed to run from a scheduler.
func (b *Bot) DailyReminders(ctx context.Context) error {
	if b.publisher == nil {
		return errors.New("no publisher configured")
	}
	users, err := b.store.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	today := core.DateOf(b.now())
	var failed int
	for _, user := range users {
		txs := b.listTransactions(ctx, user.ID, core.MonthScope(today.Year(), today.Month()))
		bills := report.BuildBillsDue(txs, today)
		if bills.Empty() {
			continue
		}
		if err := b.publisher.PublishReply(ctx, user.Phone, render.BillsDue(bills)); err != nil {
			b.logger.ErrorContext(ctx, "Reminder publish failed",
				log.FieldPhone, user.Phone, log.FieldError, err.Error())
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d reminder(s) failed to publish", failed)
	}
	return nil
}
