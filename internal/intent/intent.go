// Package intent classifies free-text messages into structured commands.
//
// Classification is an ordered first-match-wins rule list. The order is a
// deliberate priority policy: several patterns overlap (a dated expense also
// contains a plain number, "todo dia" contains "dia") and position in the
// list is what disambiguates them. Do not reorder rules.
package intent

import (
	"unicode"
	"unicode/utf8"

	"contabot/internal/core"
)

// Kind identifies the classified command.
type Kind int

const (
	Unknown Kind = iota
	RegisterExpense
	RegisterExpenseDated
	RegisterExpenseDue
	RegisterInstallment
	RegisterRecurring
	RegisterIncome
	Balance
	BillsDue
	TopExpenses
	NextMonth
	Breakdown
	Category
	WeeklySummary
	MonthComparison
	MonthlyStatement
	YearlyStatement
	Help
)

var kindNames = map[Kind]string{
	Unknown:              "unknown",
	RegisterExpense:      "register_expense",
	RegisterExpenseDated: "register_expense_dated",
	RegisterExpenseDue:   "register_expense_due",
	RegisterInstallment:  "register_installment",
	RegisterRecurring:    "register_recurring",
	RegisterIncome:       "register_income",
	Balance:              "balance",
	BillsDue:             "bills_due",
	TopExpenses:          "top_expenses",
	NextMonth:            "next_month",
	Breakdown:            "breakdown",
	Category:             "category",
	WeeklySummary:        "weekly_summary",
	MonthComparison:      "month_comparison",
	MonthlyStatement:     "monthly_statement",
	YearlyStatement:      "yearly_statement",
	Help:                 "help",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// IsRegister reports whether the intent writes transactions.
func (k Kind) IsRegister() bool {
	switch k {
	case RegisterExpense, RegisterExpenseDated, RegisterExpenseDue,
		RegisterInstallment, RegisterRecurring, RegisterIncome:
		return true
	}
	return false
}

// Intent is the classified command plus the parameters its execution needs.
// Only the fields relevant to the Kind are populated.
type Intent struct {
	Kind Kind

	// Register intents.
	Name         string     // description, first letter capitalized
	Amount       core.Money // for installments this is the purchase total
	Date         core.Date  // resolved transaction date
	DueDay       int        // 1-31 for due/recurring expenses
	Installments int        // K for parceled purchases

	// Query intents.
	Category string // matched category keyword
	Month    int    // 1-12 for monthly statements
	Year     int    // for yearly statements
}

// capitalize upper-cases the first letter only, leaving the rest untouched.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
