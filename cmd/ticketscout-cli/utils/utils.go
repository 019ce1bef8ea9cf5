package utils

import (
	"os"
	"ticketscout/internal/tickets"

	"github.com/goccy/go-json"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shopspring/decimal"
)

func NewTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func PrintJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func Price(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return d.Decimal.StringFixed(2)
}

// When formats the date and optional time of an event.
func When(e tickets.Event) string {
	if e.Date == nil {
		return "TBA"
	}
	if e.Time == nil {
		return *e.Date
	}
	return *e.Date + " " + *e.Time
}
