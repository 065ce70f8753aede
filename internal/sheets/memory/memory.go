package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	ports "a3p/internal/sheets"
	"a3p/internal/sheets/csvfile"
)

// Store is an in-memory sheet used for demos and tests.
type Store struct {
	mu      sync.Mutex
	table   ports.Table
	version int
}

var _ ports.TableSource = (*Store)(nil)

func New(t ports.Table) *Store {
	return &Store{table: copyTable(t), version: 1}
}

// NewFromFiles seeds the store from base/seed.csv (semicolon separated).
// A missing or unreadable seed falls back to a small built-in sample.
func NewFromFiles(base string) *Store {
	f, err := os.Open(filepath.Join(base, "seed.csv"))
	if err == nil {
		defer f.Close()
		if t, err := csvfile.Read(f, ';', csvfile.UTF8); err == nil && len(t.Header) > 0 {
			return New(t)
		}
	}
	return New(defaultSeed())
}

func defaultSeed() ports.Table {
	return ports.NewTable([][]string{
		{"Órgão", "Poder", "Esfera", "UF", "Início da Vigência", "Final da Vigência"},
		{"Ministério do Meio Ambiente", "Executivo", "Federal", "DF", "2019-03-01", "2029-03-01"},
		{"Assembleia Legislativa", "Legislativo", "Estadual", "SP", "2021-06-15", "2026-06-15"},
		{"Tribunal de Justiça", "Judiciário", "Estadual", "RJ", "2018-01-10", "2023-01-10"},
		{"Prefeitura Municipal", "Executivo", "Municipal", "MG", "2022-09-01", "2027-09-01"},
		{"Câmara Municipal", "Legislativo", "Municipal", "BA", "2020-02-20", "2025-02-20"},
	})
}

func (s *Store) Name() string {
	return "memory"
}

// Fingerprint is the store version, bumped by every Replace.
func (s *Store) Fingerprint(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("mem:%d", s.version), nil
}

func (s *Store) ReadTable(_ context.Context) (ports.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyTable(s.table), nil
}

// Replace swaps the table contents.
func (s *Store) Replace(t ports.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = copyTable(t)
	s.version++
}

func copyTable(t ports.Table) ports.Table {
	out := ports.Table{Header: append([]string(nil), t.Header...)}
	out.Rows = make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		out.Rows[i] = append([]string(nil), r...)
	}
	return out
}
