package http

import (
	"html/template"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"a3p/internal/core"
)

var ptBR = message.NewPrinter(language.BrazilianPortuguese)

// formatInt formats n with Brazilian digit grouping ("1.234").
func formatInt(n int) string {
	return ptBR.Sprintf("%d", n)
}

// formatFloat formats f with one decimal and Brazilian separators ("1.234,5").
func formatFloat(f float64) string {
	return ptBR.Sprintf("%.1f", f)
}

// formatDate renders a day as dd/mm/yyyy, or "-" when empty.
func formatDate(d core.Date) string {
	if d.IsEmpty() {
		return "-"
	}
	return d.Format("02/01/2006")
}

// formatTimestamp renders a load time in the given location.
func formatTimestamp(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "-"
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("02/01/2006 15:04")
}

// inputDate renders a day for an <input type="date">.
func inputDate(d core.Date) string {
	return d.String()
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 {
			return -1
		}
		return r
	}, s)
}

func templateFuncs(loc *time.Location) template.FuncMap {
	return template.FuncMap{
		"formatInt":   formatInt,
		"formatFloat": formatFloat,
		"formatDate":  formatDate,
		"inputDate":   inputDate,
		"formatTime": func(t time.Time) string {
			return formatTimestamp(t, loc)
		},
		"ufName": func(code string) string {
			if name, ok := core.UFNames[code]; ok {
				return name
			}
			return code
		},
		"percent": func(part, total int) string {
			if total == 0 {
				return "0%"
			}
			return ptBR.Sprintf("%.1f%%", 100*float64(part)/float64(total))
		},
	}
}
