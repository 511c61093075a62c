package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"
)

// WriteCSV renders r as a filter header, a summary block and the grouped rows.
func WriteCSV(w io.Writer, r Result) error {
	cw := csv.NewWriter(w)
	head := [][]string{
		{"group_by", string(r.Filter.GroupBy)},
		{"start_date", dateOrAll(r.Filter.StartDate)},
		{"end_date", dateOrAll(r.Filter.EndDate)},
		{},
		{"summary_key", "summary_value"},
		{"total_transactions", fmt.Sprintf("%d", r.Summary.Transactions)},
		{"total_sales", r.Summary.TotalSales.StringFixed(2)},
		{"cash_received", r.Summary.CashReceived.StringFixed(2)},
		{"upi_received", r.Summary.UPIReceived.StringFixed(2)},
		{"pending", r.Summary.Pending.StringFixed(2)},
		{},
		{"group_id", "group_key", "total_transactions", "total_sales", "cash_received", "upi_received", "pending_amount"},
	}
	if err := cw.WriteAll(head); err != nil {
		return err
	}
	for _, row := range r.Rows {
		id := ""
		if row.GroupID != nil {
			id = fmt.Sprintf("%d", *row.GroupID)
		}
		if err := cw.Write([]string{
			id,
			row.GroupKey,
			fmt.Sprintf("%d", row.Transactions),
			row.TotalSales.StringFixed(2),
			row.CashReceived.StringFixed(2),
			row.UPIReceived.StringFixed(2),
			row.Pending.StringFixed(2),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func dateOrAll(t *time.Time) string {
	if t == nil {
		return "all"
	}
	return t.Format("2006-01-02")
}

// Filename returns a download-safe file name for the report.
func Filename(r Result) string {
	base := "sales-by-" + strings.ToLower(string(r.Filter.GroupBy))
	base = strings.Map(func(c rune) rune {
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' {
			return c
		}
		return -1
	}, base)
	if base == "sales-by-" {
		return "sales-report"
	}
	return base
}
