package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	ports "a3p/internal/sheets"
)

func TestStoreReadAndReplace(t *testing.T) {
	s := New(ports.NewTable([][]string{{"Poder"}, {"Executivo"}}))
	ctx := context.Background()

	fp1, _ := s.Fingerprint(ctx)
	tbl, err := s.ReadTable(ctx)
	if err != nil || len(tbl.Rows) != 1 {
		t.Fatalf("unexpected read: %+v err=%v", tbl, err)
	}

	// Callers cannot mutate the stored table through the returned copy.
	tbl.Rows[0][0] = "changed"
	again, _ := s.ReadTable(ctx)
	if again.Rows[0][0] != "Executivo" {
		t.Fatalf("store mutated through copy: %q", again.Rows[0][0])
	}

	s.Replace(ports.NewTable([][]string{{"Poder"}, {"Legislativo"}, {"Judiciário"}}))
	fp2, _ := s.Fingerprint(ctx)
	if fp1 == fp2 {
		t.Fatalf("fingerprint should change after Replace: %q", fp2)
	}
	tbl, _ = s.ReadTable(ctx)
	if len(tbl.Rows) != 2 {
		t.Fatalf("expected replaced rows, got %d", len(tbl.Rows))
	}
}

func TestNewFromFilesSeeds(t *testing.T) {
	dir := t.TempDir()
	// No file -> built-in sample
	s := NewFromFiles(dir)
	tbl, _ := s.ReadTable(context.Background())
	if len(tbl.Rows) == 0 {
		t.Fatalf("expected default seed when file missing")
	}

	content := "Poder;Esfera;UF;Início da Vigência;Final da Vigência\nExecutivo;Federal;DF;2024-01-01;2025-01-01\n"
	if err := os.WriteFile(filepath.Join(dir, "seed.csv"), []byte(content), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	s = NewFromFiles(dir)
	tbl, _ = s.ReadTable(context.Background())
	if len(tbl.Rows) != 1 || tbl.Cell(0, 2) != "DF" {
		t.Fatalf("unexpected seeded table: %+v", tbl)
	}
}
