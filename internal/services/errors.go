package services

import (
	"errors"
	"fmt"
	"strings"

	"a3p/internal/dataset"
	"a3p/internal/sheets"
)

// LoadError is a fatal source failure with the message shown to the user.
type LoadError struct {
	Message string
	Err     error
}

func (e *LoadError) Error() string { return e.Err.Error() }

func (e *LoadError) Unwrap() error { return e.Err }

func (s *DashboardService) loadError(err error) error {
	return &LoadError{Message: LoadErrorMessage(err, s.opts.Location, s.opts.Sheet), Err: err}
}

// LoadErrorMessage renders err as the banner text of the dashboard.
func LoadErrorMessage(err error, location, sheet string) string {
	var missing *dataset.MissingColumnsError
	switch {
	case errors.Is(err, sheets.ErrSourceNotFound):
		return fmt.Sprintf("Arquivo '%s' não encontrado. Verifique o caminho e tente novamente.", location)
	case errors.Is(err, sheets.ErrSheetNotFound):
		return fmt.Sprintf("A aba '%s' não foi encontrada no arquivo. Verifique o nome da aba e tente novamente.", sheet)
	case errors.As(err, &missing):
		return fmt.Sprintf("As colunas necessárias %s não foram encontradas nos dados. Verifique o arquivo e tente novamente.",
			quoteList(missing.Required))
	case errors.Is(err, dataset.ErrMissingColumns):
		return "As colunas necessárias não foram encontradas nos dados. Verifique o arquivo e tente novamente."
	default:
		return fmt.Sprintf("Erro ao carregar os dados: %v", err)
	}
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = "'" + s + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
