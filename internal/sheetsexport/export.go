// Package sheetsexport appends a yearly ledger rollup to a Google Sheet.
// Used by the export CLI; the bot itself never talks to Sheets.
package sheetsexport

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"contabot/internal/render"
	"contabot/internal/report"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// NewClient creates a Sheets client from a service account credentials file.
func NewClient(ctx context.Context, credentialsFile, spreadsheetID, sheetName string) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	if strings.TrimSpace(credentialsFile) == "" {
		return nil, errors.New("missing service account credentials file")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsFile(credentialsFile),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// ExportYearLedger appends one row per active month plus a totals row.
func (c *Client) ExportYearLedger(ctx context.Context, ledger report.YearLedger) error {
	rows := ledgerRows(ledger)
	if len(rows) == 0 {
		return fmt.Errorf("no activity in %d, nothing to export", ledger.Year)
	}

	vr := &gsheet.ValueRange{Values: rows}
	_, err := c.svc.Spreadsheets.Values.
		Append(c.spreadsheetID, c.sheetName+"!A1", vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append ledger rows: %w", err)
	}
	return nil
}

// ledgerRows flattens the ledger into sheet rows. Months without activity
// are skipped, matching the chat rendering.
func ledgerRows(ledger report.YearLedger) [][]any {
	if ledger.Empty() {
		return nil
	}

	rows := [][]any{
		{fmt.Sprintf("Extrato %d", ledger.Year), "", "", ""},
		{"Mês", "Receitas", "Despesas", "Saldo"},
	}
	for _, m := range ledger.Months {
		if !m.HasActivity() {
			continue
		}
		rows = append(rows, []any{
			render.MonthName(m.Month),
			m.Income.Reais(),
			m.Expense.Reais(),
			m.Income.Sub(m.Expense).Reais(),
		})
	}
	rows = append(rows, []any{
		"Total",
		ledger.TotalIncome.Reais(),
		ledger.TotalExpense.Reais(),
		ledger.Balance().Reais(),
	})
	return rows
}
