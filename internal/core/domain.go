package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"

	RecurrenceNone     RecurrenceType = "none"
	RecurrenceFixed    RecurrenceType = "fixed"
	RecurrenceParceled RecurrenceType = "parceled"

	// DefaultCategory is assigned when a message implies no category.
	DefaultCategory = "outros"
)

type (
	// Kind discriminates income from expense records.
	Kind string

	// RecurrenceType annotates how a transaction repeats. Recurrence is
	// descriptive metadata only; it never spawns future records by itself.
	RecurrenceType string

	// Date is a calendar date with no time component.
	Date struct {
		time.Time
	}

	// Money is an amount in cents (centavos).
	Money struct {
		Cents int64
	}

	// User is an identity snapshot resolved from the remote store. Never
	// mutated here.
	User struct {
		ID    string
		Name  string
		Phone string // digits only
	}

	// Transaction is a single ledger record owned by the remote store.
	Transaction struct {
		ID       string
		UserID   string
		Kind     Kind
		Amount   Money
		Name     string
		Category string
		Date     Date

		// DueDay is the day of month for fixed bills, 0 when unset.
		DueDay     int
		Recurrence RecurrenceType

		// Installment position for parceled purchases (1-based), zero otherwise.
		CurrentInstallment int
		TotalInstallments  int
	}

	// TransactionDraft is the payload for a create call. The store assigns
	// the identifier.
	TransactionDraft struct {
		Kind               Kind
		Amount             Money
		Name               string
		Category           string
		Date               Date
		DueDay             int
		Recurrence         RecurrenceType
		CurrentInstallment int
		TotalInstallments  int
	}

	// Scope selects which transactions a read fetches: a specific month or
	// everything the user has.
	Scope struct {
		AllTime bool
		Year    int
		Month   int // 1-12
	}
)

var (
	ErrInvalidDay    = errors.New("invalid day")
	ErrInvalidMonth  = errors.New("invalid month")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyName     = errors.New("empty name")
)

// MonthScope selects a single calendar month.
func MonthScope(year, month int) Scope {
	return Scope{Year: year, Month: month}
}

// AllTimeScope selects every transaction the user has.
func AllTimeScope() Scope {
	return Scope{AllTime: true}
}

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// Day returns the day of the month.
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month as 1-12.
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year.
func (d Date) Year() int {
	return d.Time.Year()
}

// AddMonths returns the date shifted by whole calendar months.
func (d Date) AddMonths(n int) Date {
	t := d.Time.AddDate(0, n, 0)
	return DateOf(t)
}

// DaysUntil returns the whole-day difference from d to other.
// Positive when other is in the future.
func (d Date) DaysUntil(other Date) int {
	return int(other.Time.Sub(d.Time).Hours() / 24)
}

// SameMonth reports whether both dates fall in the same calendar month.
func (d Date) SameMonth(other Date) bool {
	return d.Year() == other.Year() && d.Month() == other.Month()
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (k Kind) Valid() bool {
	return k == Income || k == Expense
}

func (t TransactionDraft) Validate() error {
	if !t.Kind.Valid() {
		return errors.New("invalid transaction kind")
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Name)) == 0 {
		return ErrEmptyName
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if t.DueDay < 0 || t.DueDay > 31 {
		return ErrInvalidDay
	}
	return nil
}

// NormalizePhone strips every non-digit character so phone numbers compare
// as canonical digit strings.
func NormalizePhone(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
