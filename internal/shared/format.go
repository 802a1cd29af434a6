package shared

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var ptBR = message.NewPrinter(language.BrazilianPortuguese)

// FormatBRL renders a monetary value the way invoices show it: "R$ 1.234,56".
func FormatBRL(value float64) string {
	return ptBR.Sprintf("R$ %.2f", value)
}

// FormatDateBR renders a date as dd/mm/yyyy.
func FormatDateBR(t time.Time) string {
	return t.Format("02/01/2006")
}
