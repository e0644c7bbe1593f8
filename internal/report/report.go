// Package report computes the aggregates behind every query reply.
//
// Every function here is pure: a transaction snapshot plus a reference date
// in, a value out. Nothing is cached or persisted, so running the same
// report twice over the same snapshot always yields the same result.
package report

import (
	"math"
	"sort"
	"strings"

	"contabot/internal/core"
)

// TopExpensesLimit caps the top-expenses ranking.
const TopExpensesLimit = 10

// Balance holds the four sums behind a status reply. Balances are always
// income minus expense.
type Balance struct {
	MonthIncome  core.Money
	MonthExpense core.Money
	TotalIncome  core.Money
	TotalExpense core.Money
}

// MonthBalance returns monthly income minus monthly expense.
func (b Balance) MonthBalance() core.Money {
	return b.MonthIncome.Sub(b.MonthExpense)
}

// TotalBalance returns all-time income minus all-time expense.
func (b Balance) TotalBalance() core.Money {
	return b.TotalIncome.Sub(b.TotalExpense)
}

// BuildBalance splits the snapshot by kind and sums both the current
// calendar month and everything ever recorded.
func BuildBalance(txs []core.Transaction, today core.Date) Balance {
	var b Balance
	for _, t := range txs {
		switch t.Kind {
		case core.Income:
			b.TotalIncome = b.TotalIncome.Add(t.Amount)
			if t.Date.SameMonth(today) {
				b.MonthIncome = b.MonthIncome.Add(t.Amount)
			}
		case core.Expense:
			b.TotalExpense = b.TotalExpense.Add(t.Amount)
			if t.Date.SameMonth(today) {
				b.MonthExpense = b.MonthExpense.Add(t.Amount)
			}
		}
	}
	return b
}

// BillsDue buckets this month's expenses by how soon they fall due.
// Entries more than seven days out, or already past, are omitted.
type BillsDue struct {
	DueToday    []core.Transaction
	DueTomorrow []core.Transaction
	DueSoon     []core.Transaction // 2 to 7 days out, ascending by date
	Total       core.Money
}

// Empty reports whether no bill landed in any bucket.
func (b BillsDue) Empty() bool {
	return len(b.DueToday) == 0 && len(b.DueTomorrow) == 0 && len(b.DueSoon) == 0
}

// BuildBillsDue filters current-month expenses and buckets them by day
// distance from today: 0 is due today, 1 tomorrow, 2-7 upcoming.
func BuildBillsDue(txs []core.Transaction, today core.Date) BillsDue {
	var b BillsDue
	for _, t := range txs {
		if t.Kind != core.Expense || !t.Date.SameMonth(today) {
			continue
		}
		switch diff := today.DaysUntil(t.Date); {
		case diff == 0:
			b.DueToday = append(b.DueToday, t)
		case diff == 1:
			b.DueTomorrow = append(b.DueTomorrow, t)
		case diff >= 2 && diff <= 7:
			b.DueSoon = append(b.DueSoon, t)
		default:
			continue
		}
		b.Total = b.Total.Add(t.Amount)
	}
	sortByDateAsc(b.DueToday)
	sortByDateAsc(b.DueTomorrow)
	sortByDateAsc(b.DueSoon)
	return b
}

// TopExpenses ranks current-month expenses by amount, largest first,
// returning at most limit entries.
func TopExpenses(txs []core.Transaction, today core.Date, limit int) []core.Transaction {
	var out []core.Transaction
	for _, t := range txs {
		if t.Kind == core.Expense && t.Date.SameMonth(today) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.Cents > out[j].Amount.Cents
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// NextMonth is the expense forecast for the following calendar month.
type NextMonth struct {
	Year  int
	Month int
	Items []core.Transaction // ascending by date
	Total core.Money
}

// NextPeriod resolves the month after today, wrapping the year at December.
func NextPeriod(today core.Date) (year, month int) {
	year, month = today.Year(), today.Month()+1
	if month > 12 {
		month = 1
		year++
	}
	return year, month
}

// BuildNextMonth filters expenses falling in the month after today.
func BuildNextMonth(txs []core.Transaction, today core.Date) NextMonth {
	year, month := NextPeriod(today)
	nm := NextMonth{Year: year, Month: month}
	for _, t := range txs {
		if t.Kind != core.Expense || t.Date.Year() != year || t.Date.Month() != month {
			continue
		}
		nm.Items = append(nm.Items, t)
		nm.Total = nm.Total.Add(t.Amount)
	}
	sortByDateAsc(nm.Items)
	return nm
}

// CategoryShare is one category's slice of the monthly spend.
type CategoryShare struct {
	Category string
	Total    core.Money
	Percent  float64 // share of the monthly expense total, one decimal
}

// Breakdown is the where-does-the-money-go report: top categories plus the
// largest individual expenses of the current month.
type Breakdown struct {
	Shares []CategoryShare    // descending by total, at most 5
	Top    []core.Transaction // descending by amount, at most 5
	Total  core.Money
}

// BuildBreakdown groups current-month expenses by category. A missing
// category counts as the default one.
func BuildBreakdown(txs []core.Transaction, today core.Date) Breakdown {
	var bd Breakdown
	byCategory := make(map[string]core.Money)
	var month []core.Transaction
	for _, t := range txs {
		if t.Kind != core.Expense || !t.Date.SameMonth(today) {
			continue
		}
		cat := strings.ToLower(strings.TrimSpace(t.Category))
		if cat == "" {
			cat = core.DefaultCategory
		}
		byCategory[cat] = byCategory[cat].Add(t.Amount)
		bd.Total = bd.Total.Add(t.Amount)
		month = append(month, t)
	}

	for cat, total := range byCategory {
		bd.Shares = append(bd.Shares, CategoryShare{Category: cat, Total: total})
	}
	sort.SliceStable(bd.Shares, func(i, j int) bool {
		if bd.Shares[i].Total.Cents != bd.Shares[j].Total.Cents {
			return bd.Shares[i].Total.Cents > bd.Shares[j].Total.Cents
		}
		return bd.Shares[i].Category < bd.Shares[j].Category
	})
	if len(bd.Shares) > 5 {
		bd.Shares = bd.Shares[:5]
	}
	if bd.Total.Cents > 0 {
		for i := range bd.Shares {
			pct := float64(bd.Shares[i].Total.Cents) * 100 / float64(bd.Total.Cents)
			bd.Shares[i].Percent = math.Round(pct*10) / 10
		}
	}

	sort.SliceStable(month, func(i, j int) bool {
		return month[i].Amount.Cents > month[j].Amount.Cents
	})
	if len(month) > 5 {
		month = month[:5]
	}
	bd.Top = month
	return bd
}

// CategoryReport lists current-month expenses matching one keyword.
type CategoryReport struct {
	Keyword string
	Items   []core.Transaction // ascending by date
	Total   core.Money
}

// BuildCategory keeps expenses whose category or name contains the keyword,
// case-insensitively. A name mentioning the keyword anywhere counts.
func BuildCategory(txs []core.Transaction, today core.Date, keyword string) CategoryReport {
	cr := CategoryReport{Keyword: keyword}
	needle := strings.ToLower(keyword)
	for _, t := range txs {
		if t.Kind != core.Expense || !t.Date.SameMonth(today) {
			continue
		}
		if !strings.Contains(strings.ToLower(t.Category), needle) &&
			!strings.Contains(strings.ToLower(t.Name), needle) {
			continue
		}
		cr.Items = append(cr.Items, t)
		cr.Total = cr.Total.Add(t.Amount)
	}
	sortByDateAsc(cr.Items)
	return cr
}

// Weekly summarizes the current week, Sunday through Saturday inclusive.
type Weekly struct {
	Start   core.Date
	End     core.Date
	Income  core.Money
	Expense core.Money
	Top     []core.Transaction // descending by amount, at most 3
}

// WeekBounds returns the Sunday and Saturday of the week containing d.
func WeekBounds(d core.Date) (start, end core.Date) {
	offset := int(d.Weekday()) // Sunday == 0
	start = core.DateOf(d.AddDate(0, 0, -offset))
	end = core.DateOf(start.AddDate(0, 0, 6))
	return start, end
}

// BuildWeekly sums the current week's activity by kind and picks the three
// largest expenses.
func BuildWeekly(txs []core.Transaction, today core.Date) Weekly {
	start, end := WeekBounds(today)
	w := Weekly{Start: start, End: end}
	var expenses []core.Transaction
	for _, t := range txs {
		if t.Date.Before(start.Time) || t.Date.After(end.Time) {
			continue
		}
		switch t.Kind {
		case core.Income:
			w.Income = w.Income.Add(t.Amount)
		case core.Expense:
			w.Expense = w.Expense.Add(t.Amount)
			expenses = append(expenses, t)
		}
	}
	sort.SliceStable(expenses, func(i, j int) bool {
		return expenses[i].Amount.Cents > expenses[j].Amount.Cents
	})
	if len(expenses) > 3 {
		expenses = expenses[:3]
	}
	w.Top = expenses
	return w
}

// Direction tags which way a delta moved.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
	Flat Direction = "flat"
)

// Delta is a signed difference between two periods.
type Delta struct {
	Amount    core.Money // current minus previous, may be negative
	Direction Direction
}

func deltaOf(current, previous core.Money) Delta {
	d := Delta{Amount: current.Sub(previous)}
	switch {
	case d.Amount.Cents > 0:
		d.Direction = Up
	case d.Amount.Cents < 0:
		d.Direction = Down
	default:
		d.Direction = Flat
	}
	return d
}

// PeriodTotals are the income/expense sums of one calendar month.
type PeriodTotals struct {
	Year    int
	Month   int
	Income  core.Money
	Expense core.Money
}

// Balance returns income minus expense for the period.
func (p PeriodTotals) Balance() core.Money {
	return p.Income.Sub(p.Expense)
}

// Comparison contrasts the current month with the one before it.
type Comparison struct {
	Current  PeriodTotals
	Previous PeriodTotals
	Income   Delta
	Expense  Delta
	Balance  Delta
}

// BuildComparison computes both months' totals and the three deltas.
// The previous period wraps the year at January.
func BuildComparison(txs []core.Transaction, today core.Date) Comparison {
	curYear, curMonth := today.Year(), today.Month()
	prevYear, prevMonth := curYear, curMonth-1
	if prevMonth < 1 {
		prevMonth = 12
		prevYear--
	}

	c := Comparison{
		Current:  PeriodTotals{Year: curYear, Month: curMonth},
		Previous: PeriodTotals{Year: prevYear, Month: prevMonth},
	}
	for _, t := range txs {
		var p *PeriodTotals
		switch {
		case t.Date.Year() == curYear && t.Date.Month() == curMonth:
			p = &c.Current
		case t.Date.Year() == prevYear && t.Date.Month() == prevMonth:
			p = &c.Previous
		default:
			continue
		}
		switch t.Kind {
		case core.Income:
			p.Income = p.Income.Add(t.Amount)
		case core.Expense:
			p.Expense = p.Expense.Add(t.Amount)
		}
	}
	c.Income = deltaOf(c.Current.Income, c.Previous.Income)
	c.Expense = deltaOf(c.Current.Expense, c.Previous.Expense)
	c.Balance = deltaOf(c.Current.Balance(), c.Previous.Balance())
	return c
}

// Statement is the full ledger of one month, both sides sorted by date.
// An empty statement is a valid outcome, not an error.
type Statement struct {
	Year         int
	Month        int
	Income       []core.Transaction
	Expense      []core.Transaction
	IncomeTotal  core.Money
	ExpenseTotal core.Money
}

// Balance returns the statement's income total minus its expense total.
func (s Statement) Balance() core.Money {
	return s.IncomeTotal.Sub(s.ExpenseTotal)
}

// Empty reports whether the month had no activity at all.
func (s Statement) Empty() bool {
	return len(s.Income) == 0 && len(s.Expense) == 0
}

// BuildStatement filters one month and splits it by kind.
func BuildStatement(txs []core.Transaction, year, month int) Statement {
	s := Statement{Year: year, Month: month}
	for _, t := range txs {
		if t.Date.Year() != year || t.Date.Month() != month {
			continue
		}
		switch t.Kind {
		case core.Income:
			s.Income = append(s.Income, t)
			s.IncomeTotal = s.IncomeTotal.Add(t.Amount)
		case core.Expense:
			s.Expense = append(s.Expense, t)
			s.ExpenseTotal = s.ExpenseTotal.Add(t.Amount)
		}
	}
	sortByDateAsc(s.Income)
	sortByDateAsc(s.Expense)
	return s
}

// MonthTotals is one row of the yearly ledger.
type MonthTotals struct {
	Month   int
	Income  core.Money
	Expense core.Money
}

// HasActivity reports whether anything was recorded in the month.
func (m MonthTotals) HasActivity() bool {
	return m.Income.Cents != 0 || m.Expense.Cents != 0
}

// YearLedger is the twelve-month rollup for one year.
type YearLedger struct {
	Year         int
	Months       [12]MonthTotals
	TotalIncome  core.Money
	TotalExpense core.Money
}

// Balance returns the year's income total minus its expense total.
func (y YearLedger) Balance() core.Money {
	return y.TotalIncome.Sub(y.TotalExpense)
}

// Empty reports whether the whole year had no activity.
func (y YearLedger) Empty() bool {
	for _, m := range y.Months {
		if m.HasActivity() {
			return false
		}
	}
	return true
}

// BuildYearLedger assigns each of the year's transactions to its month and
// accumulates grand totals.
func BuildYearLedger(txs []core.Transaction, year int) YearLedger {
	y := YearLedger{Year: year}
	for i := range y.Months {
		y.Months[i].Month = i + 1
	}
	for _, t := range txs {
		if t.Date.Year() != year {
			continue
		}
		m := &y.Months[t.Date.Month()-1]
		switch t.Kind {
		case core.Income:
			m.Income = m.Income.Add(t.Amount)
			y.TotalIncome = y.TotalIncome.Add(t.Amount)
		case core.Expense:
			m.Expense = m.Expense.Add(t.Amount)
			y.TotalExpense = y.TotalExpense.Add(t.Amount)
		}
	}
	return y
}

func sortByDateAsc(txs []core.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Date.Before(txs[j].Date.Time)
	})
}
