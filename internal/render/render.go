// Package render turns intents and reports into the final reply text.
//
// Every reply is a fixed template with money and dates substituted in. There
// is no branching beyond picking the template for the intent; all decisions
// happen before rendering.
package render

import (
	"fmt"
	"strings"

	"contabot/internal/core"
	"contabot/internal/intent"
	"contabot/internal/report"
)

var monthDisplay = [...]string{
	1:  "Janeiro",
	2:  "Fevereiro",
	3:  "Março",
	4:  "Abril",
	5:  "Maio",
	6:  "Junho",
	7:  "Julho",
	8:  "Agosto",
	9:  "Setembro",
	10: "Outubro",
	11: "Novembro",
	12: "Dezembro",
}

// MonthName returns the display name for a 1-12 month, empty otherwise.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return monthDisplay[month]
}

// NotAuthorized is the fixed reply for an unknown phone number.
func NotAuthorized() string {
	return "❌ Número não autorizado"
}

// Unknown is the fixed fallback for unclassified input.
func Unknown() string {
	return "❓ Não entendi. Envie \"ajuda\" para ver os comandos."
}

// Help lists every supported command.
func Help() string {
	return strings.Join([]string{
		"🤖 COMANDOS:",
		"• pagar luz 150 — registra uma despesa de hoje",
		"• ifood 89 ontem — despesa com data (hoje/ontem/amanhã)",
		"• internet 99 dia 10 — conta com vencimento",
		"• tv 3000 10x — compra parcelada",
		"• academia 120 todo dia 15 — despesa fixa",
		"• recebi salario 3000 — registra uma receita",
		"• saldo / status — resumo do mês e do total",
		"• contas a pagar — vencimentos dos próximos dias",
		"• maiores gastos — top 10 despesas do mês",
		"• mês que vem — previsão do próximo mês",
		"• onde gasto mais — gastos por categoria",
		"• mercado / uber / luz... — gastos de uma categoria",
		"• resumo semanal — movimento da semana",
		"• comparar — este mês contra o anterior",
		"• extrato janeiro — extrato de um mês",
		"• extrato 2025 — extrato do ano",
	}, "\n")
}

// ExpenseRegistered confirms a single expense write.
func ExpenseRegistered(it intent.Intent) string {
	return fmt.Sprintf("✅ Despesa registrada: %s %s (%s)",
		it.Name, it.Amount.BRL(), it.Date.DisplayDate())
}

// DueExpenseRegistered confirms a bill with a due day.
func DueExpenseRegistered(it intent.Intent) string {
	return fmt.Sprintf("✅ Conta registrada: %s %s, vence dia %d (%s)",
		it.Name, it.Amount.BRL(), it.DueDay, it.Date.DisplayDate())
}

// RecurringRegistered confirms a fixed monthly bill.
func RecurringRegistered(it intent.Intent) string {
	return fmt.Sprintf("✅ Despesa fixa registrada: %s %s todo dia %d",
		it.Name, it.Amount.BRL(), it.DueDay)
}

// InstallmentRegistered confirms a parceled purchase. per is the amount of
// each installment.
func InstallmentRegistered(it intent.Intent, per core.Money) string {
	return fmt.Sprintf("✅ Compra parcelada registrada: %s %s em %dx de %s",
		it.Name, it.Amount.BRL(), it.Installments, per.BRL())
}

// IncomeRegistered confirms an income write.
func IncomeRegistered(it intent.Intent) string {
	return fmt.Sprintf("✅ Receita registrada: %s %s (%s)",
		it.Name, it.Amount.BRL(), it.Date.DisplayDate())
}

// Balance renders the four sums of the status reply.
func Balance(b report.Balance) string {
	var sb strings.Builder
	sb.WriteString("📊 STATUS:\n")
	sb.WriteString("Receitas do mês: " + b.MonthIncome.BRL() + "\n")
	sb.WriteString("Despesas do mês: " + b.MonthExpense.BRL() + "\n")
	sb.WriteString("Saldo do mês: " + b.MonthBalance().BRL() + "\n")
	sb.WriteString("\n")
	sb.WriteString("Receitas totais: " + b.TotalIncome.BRL() + "\n")
	sb.WriteString("Despesas totais: " + b.TotalExpense.BRL() + "\n")
	sb.WriteString("Saldo total: " + b.TotalBalance().BRL())
	return sb.String()
}

// BillsDue renders the due-soon buckets.
func BillsDue(b report.BillsDue) string {
	if b.Empty() {
		return "✅ Nenhuma conta a pagar nos próximos dias"
	}
	var sb strings.Builder
	sb.WriteString("📋 CONTAS A PAGAR:\n")
	writeBucket(&sb, "🔴 Hoje:", b.DueToday)
	writeBucket(&sb, "🟡 Amanhã:", b.DueTomorrow)
	writeBucket(&sb, "🟢 Próximos dias:", b.DueSoon)
	sb.WriteString("\n💰 Total: " + b.Total.BRL())
	return sb.String()
}

func writeBucket(sb *strings.Builder, header string, txs []core.Transaction) {
	if len(txs) == 0 {
		return
	}
	sb.WriteString(header + "\n")
	for _, t := range txs {
		sb.WriteString(fmt.Sprintf("• %s: %s (%s)\n", t.Name, t.Amount.BRL(), t.Date.DisplayDate()))
	}
}

// TopExpenses renders the ranked monthly expenses.
func TopExpenses(items []core.Transaction) string {
	if len(items) == 0 {
		return "✅ Nenhuma despesa registrada este mês"
	}
	var sb strings.Builder
	sb.WriteString("🏆 MAIORES GASTOS DO MÊS:\n")
	for i, t := range items {
		sb.WriteString(fmt.Sprintf("%d. %s: %s\n", i+1, t.Name, t.Amount.BRL()))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// NextMonth renders the forecast for the coming month.
func NextMonth(nm report.NextMonth) string {
	if len(nm.Items) == 0 {
		return "✅ Nenhuma conta prevista para " + MonthName(nm.Month)
	}
	var sb strings.Builder
	sb.WriteString("📅 CONTAS DE " + strings.ToUpper(MonthName(nm.Month)) + ":\n")
	for _, t := range nm.Items {
		sb.WriteString(fmt.Sprintf("• %s: %s (%s)\n", t.Name, t.Amount.BRL(), t.Date.DisplayDate()))
	}
	sb.WriteString("\n💰 Total previsto: " + nm.Total.BRL())
	return sb.String()
}

// Breakdown renders spending by category plus the largest expenses.
func Breakdown(bd report.Breakdown) string {
	if bd.Total.Cents == 0 {
		return "✅ Nenhuma despesa registrada este mês"
	}
	var sb strings.Builder
	sb.WriteString("📊 ONDE VOCÊ GASTA:\n")
	for _, s := range bd.Shares {
		sb.WriteString(fmt.Sprintf("• %s: %s (%.1f%%)\n", s.Category, s.Total.BRL(), s.Percent))
	}
	sb.WriteString("\n🏆 Maiores despesas:\n")
	for _, t := range bd.Top {
		sb.WriteString(fmt.Sprintf("• %s: %s\n", t.Name, t.Amount.BRL()))
	}
	sb.WriteString("\n💰 Total do mês: " + bd.Total.BRL())
	return sb.String()
}

// Category renders the expenses matching one keyword.
func Category(cr report.CategoryReport) string {
	if len(cr.Items) == 0 {
		return fmt.Sprintf("✅ Nenhum gasto com %s este mês", cr.Keyword)
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🔎 GASTOS COM %s:\n", strings.ToUpper(cr.Keyword)))
	for _, t := range cr.Items {
		sb.WriteString(fmt.Sprintf("• %s: %s (%s)\n", t.Name, t.Amount.BRL(), t.Date.DisplayDate()))
	}
	sb.WriteString("\n💰 Total: " + cr.Total.BRL())
	return sb.String()
}

// Weekly renders the week summary.
func Weekly(w report.Weekly) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📅 RESUMO DA SEMANA (%s a %s):\n",
		w.Start.DisplayDate(), w.End.DisplayDate()))
	sb.WriteString("Receitas: " + w.Income.BRL() + "\n")
	sb.WriteString("Despesas: " + w.Expense.BRL() + "\n")
	sb.WriteString("Saldo: " + w.Income.Sub(w.Expense).BRL())
	if len(w.Top) > 0 {
		sb.WriteString("\n\n🏆 Maiores despesas:\n")
		for _, t := range w.Top {
			sb.WriteString(fmt.Sprintf("• %s: %s\n", t.Name, t.Amount.BRL()))
		}
		return strings.TrimRight(sb.String(), "\n")
	}
	return sb.String()
}

// Comparison renders this month against the previous one.
func Comparison(c report.Comparison) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📊 %s vs %s:\n",
		MonthName(c.Current.Month), MonthName(c.Previous.Month)))
	sb.WriteString("Receitas: " + deltaLine(c.Income) + "\n")
	sb.WriteString("Despesas: " + deltaLine(c.Expense) + "\n")
	sb.WriteString("Saldo: " + deltaLine(c.Balance))
	return sb.String()
}

func deltaLine(d report.Delta) string {
	switch d.Direction {
	case report.Up:
		return "⬆️ subiu " + d.Amount.BRL()
	case report.Down:
		return "⬇️ caiu " + core.Money{Cents: -d.Amount.Cents}.BRL()
	default:
		return "➡️ sem variação"
	}
}

// Statement renders one month's full ledger.
func Statement(s report.Statement) string {
	if s.Empty() {
		return fmt.Sprintf("✅ Nenhuma movimentação em %s", MonthName(s.Month))
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📄 EXTRATO DE %s:\n", strings.ToUpper(MonthName(s.Month))))
	if len(s.Income) > 0 {
		sb.WriteString("\n💵 Receitas:\n")
		for _, t := range s.Income {
			sb.WriteString(fmt.Sprintf("• %s: %s (%s)\n", t.Name, t.Amount.BRL(), t.Date.DisplayDate()))
		}
	}
	if len(s.Expense) > 0 {
		sb.WriteString("\n💸 Despesas:\n")
		for _, t := range s.Expense {
			sb.WriteString(fmt.Sprintf("• %s: %s (%s)\n", t.Name, t.Amount.BRL(), t.Date.DisplayDate()))
		}
	}
	sb.WriteString("\nReceitas: " + s.IncomeTotal.BRL())
	sb.WriteString("\nDespesas: " + s.ExpenseTotal.BRL())
	sb.WriteString("\n💰 Saldo: " + s.Balance().BRL())
	return sb.String()
}

// YearLedger renders the per-month rollup of one year. Months without
// activity are skipped.
func YearLedger(y report.YearLedger) string {
	if y.Empty() {
		return fmt.Sprintf("✅ Nenhuma movimentação em %d", y.Year)
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📆 EXTRATO DE %d:\n", y.Year))
	for _, m := range y.Months {
		if !m.HasActivity() {
			continue
		}
		sb.WriteString(fmt.Sprintf("• %s: +%s / -%s\n",
			MonthName(m.Month), m.Income.BRL(), m.Expense.BRL()))
	}
	sb.WriteString("\nReceitas: " + y.TotalIncome.BRL())
	sb.WriteString("\nDespesas: " + y.TotalExpense.BRL())
	sb.WriteString("\n💰 Saldo do ano: " + y.Balance().BRL())
	return sb.String()
}
