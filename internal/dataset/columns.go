package dataset

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// ColumnMap names the header of each field read from the sheet.
type ColumnMap struct {
	Power  string `yaml:"power"`
	Sphere string `yaml:"sphere"`
	State  string `yaml:"state"`
	Start  string `yaml:"start"`
	End    string `yaml:"end"`
}

// DefaultColumns returns the headers of the A3P adhesion workbook.
func DefaultColumns() ColumnMap {
	return ColumnMap{
		Power:  "Poder",
		Sphere: "Esfera",
		State:  "UF",
		Start:  "Início da Vigência",
		End:    "Final da Vigência",
	}
}

// LoadColumns reads a YAML column mapping. Fields left out keep their
// default header.
func LoadColumns(path string) (ColumnMap, error) {
	cols := DefaultColumns()
	if path == "" {
		return cols, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cols, fmt.Errorf("read columns file: %w", err)
	}
	var override ColumnMap
	if err := yaml.Unmarshal(data, &override); err != nil {
		return cols, fmt.Errorf("parse columns file %s: %w", path, err)
	}
	return cols.merge(override), nil
}

func (c ColumnMap) merge(o ColumnMap) ColumnMap {
	pick := func(def, v string) string {
		if strings.TrimSpace(v) == "" {
			return def
		}
		return strings.TrimSpace(v)
	}
	return ColumnMap{
		Power:  pick(c.Power, o.Power),
		Sphere: pick(c.Sphere, o.Sphere),
		State:  pick(c.State, o.State),
		Start:  pick(c.Start, o.Start),
		End:    pick(c.End, o.End),
	}
}

// Required lists the headers in the order they are reported when missing.
func (c ColumnMap) Required() []string {
	return []string{c.Power, c.Sphere, c.State, c.Start, c.End}
}

// headerKey folds a header for comparison: trimmed, inner spaces collapsed,
// lower-cased and stripped of accents, so "INICIO DA VIGENCIA" matches
// "Início da Vigência".
func headerKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.Join(strings.Fields(folded), " "))
}

// indexOf returns the position of target in headers using headerKey, or -1.
func indexOf(headers []string, target string) int {
	key := headerKey(target)
	for i, h := range headers {
		if headerKey(h) == key {
			return i
		}
	}
	return -1
}
