package intent

import (
	"regexp"
	"strconv"
	"strings"

	"contabot/internal/core"
)

// Rule vocabulary. Users type with and without accents, so every accented
// phrase carries its plain form too.
var (
	numberPat = `(\d+(?:[.,]\d+)?)`

	reSimpleExpense = regexp.MustCompile(`(?:pagar|paguei|gastei|comprei)\s+(.+?)\s+` + numberPat)
	reDatedExpense  = regexp.MustCompile(`(.+?)\s+` + numberPat + `\s+(hoje|ontem|amanh[ãa])\b`)
	reDueExpense    = regexp.MustCompile(`(.+?)\s+` + numberPat + `\s+dia\s+(\d{1,2})\b`)
	reInstallment   = regexp.MustCompile(`(.+?)\s+` + numberPat + `\s+(?:em\s+)?(\d{1,2})x\b`)
	reRecurring     = regexp.MustCompile(`(.+?)\s+` + numberPat + `\s+todo\s+dia\s+(\d{1,2})\b`)
	reIncome        = regexp.MustCompile(`(?:recebi|depositei|ganhei)\s+(.+?)\s+` + numberPat)
	reMonthName     = regexp.MustCompile(`extrato\s+([a-zç]+)`)
	reYearToken     = regexp.MustCompile(`\b(20\d{2})\b`)
)

var billsDuePhrases = []string{"contas a pagar", "o que devo", "minhas contas"}

var topExpensePhrases = []string{"maiores contas", "maiores gastos", "top gastos"}

var nextMonthPhrases = []string{"mês que vem", "mes que vem", "próximo mês", "proximo mes"}

var breakdownPhrases = []string{"onde gasto mais", "categorias", "meus gastos"}

var weeklyPhrases = []string{"resumo semanal", "essa semana", "esta semana"}

var comparePhrases = []string{"comparar", "mês passado", "mes passado", "diferença", "diferenca"}

// categoryVocabulary is scanned in order; the first keyword found in the
// message becomes the category filter.
var categoryVocabulary = []string{
	"mercado",
	"ifood",
	"uber",
	"aluguel",
	"luz",
	"água",
	"agua",
	"internet",
	"netflix",
	"spotify",
	"farmácia",
	"farmacia",
	"academia",
	"gasolina",
	"transporte",
	"telefone",
	"restaurante",
	"padaria",
}

var monthNames = map[string]int{
	"janeiro":   1,
	"fevereiro": 2,
	"março":     3,
	"marco":     3,
	"abril":     4,
	"maio":      5,
	"junho":     6,
	"julho":     7,
	"agosto":    8,
	"setembro":  9,
	"outubro":   10,
	"novembro":  11,
	"dezembro":  12,
}

// matchFunc inspects a lower-cased, trimmed message and either produces an
// intent or passes.
type matchFunc func(text string, today core.Date) (Intent, bool)

type rule struct {
	name  string
	match matchFunc
}

// rules is the priority list. First match wins; everything after a matching
// rule is unreachable for that input.
var rules = []rule{
	{"simple expense", matchSimpleExpense},
	{"dated expense", matchDatedExpense},
	{"expense with due day", matchDueExpense},
	{"installment purchase", matchInstallment},
	{"recurring expense", matchRecurring},
	{"income", matchIncome},
	{"balance", matchBalance},
	{"bills due", containsAny(billsDuePhrases, BillsDue)},
	{"top expenses", containsAny(topExpensePhrases, TopExpenses)},
	{"next month", containsAny(nextMonthPhrases, NextMonth)},
	{"spending breakdown", containsAny(breakdownPhrases, Breakdown)},
	{"category", matchCategory},
	{"weekly summary", containsAny(weeklyPhrases, WeeklySummary)},
	{"month comparison", containsAny(comparePhrases, MonthComparison)},
	{"monthly statement", matchMonthlyStatement},
	{"yearly statement", matchYearlyStatement},
	{"help", matchHelp},
}

// Classify resolves a raw message into an Intent. Input casing and
// surrounding whitespace are irrelevant. Today anchors relative dates.
func Classify(text string, today core.Date) Intent {
	msg := strings.ToLower(strings.TrimSpace(text))
	if msg == "" {
		return Intent{Kind: Unknown}
	}
	for _, r := range rules {
		if it, ok := r.match(msg, today); ok {
			return it
		}
	}
	return Intent{Kind: Unknown}
}

func matchSimpleExpense(text string, today core.Date) (Intent, bool) {
	m := reSimpleExpense.FindStringSubmatch(text)
	if m == nil {
		return Intent{}, false
	}
	amount, err := core.ParseMoney(m[2])
	if err != nil {
		return Intent{}, false
	}
	return Intent{
		Kind:   RegisterExpense,
		Name:   capitalize(m[1]),
		Amount: amount,
		Date:   today,
	}, true
}

func matchDatedExpense(text string, today core.Date) (Intent, bool) {
	m := reDatedExpense.FindStringSubmatch(text)
	if m == nil {
		return Intent{}, false
	}
	amount, err := core.ParseMoney(m[2])
	if err != nil {
		return Intent{}, false
	}
	date := today
	switch m[3] {
	case "ontem":
		date = core.DateOf(today.AddDate(0, 0, -1))
	case "amanhã", "amanha":
		date = core.DateOf(today.AddDate(0, 0, 1))
	}
	return Intent{
		Kind:   RegisterExpenseDated,
		Name:   capitalize(m[1]),
		Amount: amount,
		Date:   date,
	}, true
}

func matchDueExpense(text string, today core.Date) (Intent, bool) {
	m := reDueExpense.FindStringSubmatch(text)
	if m == nil {
		return Intent{}, false
	}
	amount, err := core.ParseMoney(m[2])
	if err != nil {
		return Intent{}, false
	}
	day, err := strconv.Atoi(m[3])
	if err != nil || day < 1 || day > 31 {
		return Intent{}, false
	}
	due := core.NewDate(today.Year(), today.Month(), day)
	if day < today.Day() {
		// That day already passed this month; the bill is due next month.
		due = due.AddMonths(1)
	}
	return Intent{
		Kind:   RegisterExpenseDue,
		Name:   capitalize(m[1]),
		Amount: amount,
		Date:   due,
		DueDay: day,
	}, true
}

func matchInstallment(text string, today core.Date) (Intent, bool) {
	m := reInstallment.FindStringSubmatch(text)
	if m == nil {
		return Intent{}, false
	}
	amount, err := core.ParseMoney(m[2])
	if err != nil {
		return Intent{}, false
	}
	k, err := strconv.Atoi(m[3])
	if err != nil || k < 1 {
		return Intent{}, false
	}
	return Intent{
		Kind:         RegisterInstallment,
		Name:         capitalize(m[1]),
		Amount:       amount,
		Date:         today,
		Installments: k,
	}, true
}

func matchRecurring(text string, today core.Date) (Intent, bool) {
	m := reRecurring.FindStringSubmatch(text)
	if m == nil {
		return Intent{}, false
	}
	amount, err := core.ParseMoney(m[2])
	if err != nil {
		return Intent{}, false
	}
	day, err := strconv.Atoi(m[3])
	if err != nil || day < 1 || day > 31 {
		return Intent{}, false
	}
	due := core.NewDate(today.Year(), today.Month(), day)
	if day < today.Day() {
		due = due.AddMonths(1)
	}
	return Intent{
		Kind:   RegisterRecurring,
		Name:   capitalize(m[1]),
		Amount: amount,
		Date:   due,
		DueDay: day,
	}, true
}

func matchIncome(text string, today core.Date) (Intent, bool) {
	m := reIncome.FindStringSubmatch(text)
	if m == nil {
		return Intent{}, false
	}
	amount, err := core.ParseMoney(m[2])
	if err != nil {
		return Intent{}, false
	}
	return Intent{
		Kind:   RegisterIncome,
		Name:   capitalize(m[1]),
		Amount: amount,
		Date:   today,
	}, true
}

func matchBalance(text string, _ core.Date) (Intent, bool) {
	if strings.Contains(text, "saldo") || strings.Contains(text, "status") {
		return Intent{Kind: Balance}, true
	}
	return Intent{}, false
}

func containsAny(phrases []string, kind Kind) matchFunc {
	return func(text string, _ core.Date) (Intent, bool) {
		for _, p := range phrases {
			if strings.Contains(text, p) {
				return Intent{Kind: kind}, true
			}
		}
		return Intent{}, false
	}
}

func matchCategory(text string, _ core.Date) (Intent, bool) {
	for _, keyword := range categoryVocabulary {
		if strings.Contains(text, keyword) {
			return Intent{Kind: Category, Category: keyword}, true
		}
	}
	return Intent{}, false
}

func matchMonthlyStatement(text string, today core.Date) (Intent, bool) {
	m := reMonthName.FindStringSubmatch(text)
	if m == nil {
		return Intent{}, false
	}
	month, ok := monthNames[m[1]]
	if !ok {
		return Intent{}, false
	}
	// The statement always targets the current year.
	return Intent{Kind: MonthlyStatement, Month: month, Year: today.Year()}, true
}

func matchYearlyStatement(text string, _ core.Date) (Intent, bool) {
	if !strings.Contains(text, "extrato") && !strings.Contains(text, "ano") {
		return Intent{}, false
	}
	m := reYearToken.FindStringSubmatch(text)
	if m == nil {
		return Intent{}, false
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return Intent{}, false
	}
	return Intent{Kind: YearlyStatement, Year: year}, true
}

func matchHelp(text string, _ core.Date) (Intent, bool) {
	if text == "ajuda" || text == "comandos" {
		return Intent{Kind: Help}, true
	}
	return Intent{}, false
}
