package google

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"google.golang.org/api/googleapi"

	ports "a3p/internal/sheets"
)

func TestNewFromEnv_MissingSpreadsheetID(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")

	_, err := NewFromEnv(context.Background())
	if err == nil {
		t.Fatal("expected error for missing GOOGLE_SPREADSHEET_ID")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewSheetsService_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_OAUTH_TOKEN_FILE", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	if _, err := NewService(context.Background()); err == nil {
		t.Fatal("expected error without credentials")
	}
}

func TestNewSheetsService_UnreadableFile(t *testing.T) {
	t.Setenv("GOOGLE_OAUTH_TOKEN_FILE", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", t.TempDir()+"/absent.json")

	_, err := NewService(context.Background())
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func fakeClient(values [][]interface{}, calls *int32) *Client {
	c := New(nil, "sheet-id", DefaultSheetName)
	c.fetch = func(context.Context) ([][]interface{}, error) {
		atomic.AddInt32(calls, 1)
		return values, nil
	}
	return c
}

func TestReadTableConvertsValues(t *testing.T) {
	var calls int32
	c := fakeClient([][]interface{}{
		{"Poder", "Esfera", "UF", "Início da Vigência", "Final da Vigência"},
		{"Executivo", " Federal ", "DF", 45292.0, 46023.0},
		{"Legislativo", "Municipal", nil},
	}, &calls)

	tbl, err := c.ReadTable(context.Background())
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if got := tbl.Cell(0, 3); got != "45292" {
		t.Errorf("serial = %q", got)
	}
	if got := tbl.Cell(0, 1); got != "Federal" {
		t.Errorf("text not trimmed: %q", got)
	}
	if got := tbl.Cell(1, 2); got != "" {
		t.Errorf("nil cell = %q", got)
	}
}

func TestFingerprintRefreshesAndReadReuses(t *testing.T) {
	var calls int32
	c := fakeClient([][]interface{}{{"Poder"}, {"Executivo"}}, &calls)
	ctx := context.Background()

	fp1, err := c.Fingerprint(ctx)
	if err != nil || fp1 == "" {
		t.Fatalf("Fingerprint = %q, %v", fp1, err)
	}
	if _, err := c.ReadTable(ctx); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("ReadTable after Fingerprint should reuse values, calls=%d", calls)
	}

	fp2, _ := c.Fingerprint(ctx)
	if fp1 != fp2 || calls != 2 {
		t.Fatalf("fingerprint should refresh and be stable: %q %q calls=%d", fp1, fp2, calls)
	}

	c.InvalidateCache()
	if _, err := c.ReadTable(ctx); err != nil {
		t.Fatal(err)
	}
	if calls != 3 {
		t.Fatalf("invalidated cache should refetch, calls=%d", calls)
	}
}

func TestCacheExpiration(t *testing.T) {
	var calls int32
	c := fakeClient([][]interface{}{{"Poder"}}, &calls)
	c.cacheValidDuration = 20 * time.Millisecond
	ctx := context.Background()

	_, _ = c.ReadTable(ctx)
	_, _ = c.ReadTable(ctx)
	if calls != 1 {
		t.Fatalf("expected cached read, calls=%d", calls)
	}
	time.Sleep(40 * time.Millisecond)
	_, _ = c.ReadTable(ctx)
	if calls != 2 {
		t.Fatalf("expected refetch after expiry, calls=%d", calls)
	}
}

func TestUninitializedService(t *testing.T) {
	c := New(nil, "id", "x")
	if _, err := c.ReadTable(context.Background()); err == nil {
		t.Fatal("expected error without service")
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want error
	}{
		{&googleapi.Error{Code: 404, Message: "Requested entity was not found."}, ports.ErrSourceNotFound},
		{&googleapi.Error{Code: 400, Message: "Unable to parse range: 'Nope'"}, ports.ErrSheetNotFound},
	}
	for _, tc := range cases {
		if got := classify(tc.err, "'Nope'"); !errors.Is(got, tc.want) {
			t.Errorf("classify(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
	other := errors.New("boom")
	if got := classify(other, "r"); !errors.Is(got, other) {
		t.Errorf("unexpected wrap: %v", got)
	}
}

func TestQuoteSheet(t *testing.T) {
	if got := quoteSheet("Adesões à A3P"); got != "'Adesões à A3P'" {
		t.Errorf("got %q", got)
	}
	if got := quoteSheet("O'Neil"); got != "'O''Neil'" {
		t.Errorf("got %q", got)
	}
}
