package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	ports "a3p/internal/sheets"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheetName is used when GOOGLE_SHEET_NAME is not set.
const DefaultSheetName = "Adesões à A3P"

type valuesFetcher func(ctx context.Context) ([][]interface{}, error)

// Client reads the adhesion sheet from a Google spreadsheet.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	fetch         valuesFetcher

	// Fingerprint and ReadTable usually run back to back; the last values
	// read are reused for cacheValidDuration.
	mu                 sync.Mutex
	cachedValues       [][]string
	cacheExpiresAt     time.Time
	cacheValidDuration time.Duration
}

// Ensure interface conformance
var _ ports.TableSource = (*Client)(nil)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: GOOGLE_SHEET_NAME (default "Adesões à A3P")
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheetName := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if sheetName == "" {
		sheetName = DefaultSheetName
	}

	svc, err := NewService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, spreadsheetID, sheetName), nil
}

// New wraps an existing service.
func New(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	c := &Client{
		svc:                svc,
		spreadsheetID:      spreadsheetID,
		sheetName:          sheetName,
		cacheValidDuration: 10 * time.Second,
	}
	c.fetch = c.getValues
	return c
}

// NewService initializes a Sheets Service. A user token saved by
// "a3p sheets-login" (GOOGLE_OAUTH_TOKEN_FILE) wins; otherwise Service Account
// credentials come from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE,
// or GOOGLE_APPLICATION_CREDENTIALS.
func NewService(ctx context.Context) (*gsheet.Service, error) {
	ts, ok, err := userTokenSource(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		slog.InfoContext(ctx, "Using OAuth user token", "path", TokenFile())
		service, err := gsheet.NewService(ctx, goption.WithTokenSource(ts))
		if err != nil {
			return nil, fmt.Errorf("create sheets service: %w", err)
		}
		return service, nil
	}

	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	// Also check the standard Google Cloud environment variable
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte

	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *Client) Name() string {
	return fmt.Sprintf("sheets:%s#%s", c.spreadsheetID, c.sheetName)
}

// Fingerprint hashes the sheet content. The Sheets API exposes no cheap
// revision marker under the read-only scope.
func (c *Client) Fingerprint(ctx context.Context) (string, error) {
	values, err := c.values(ctx, true)
	if err != nil {
		return "", err
	}
	return ports.ContentFingerprint(values), nil
}

func (c *Client) ReadTable(ctx context.Context) (ports.Table, error) {
	values, err := c.values(ctx, false)
	if err != nil {
		return ports.Table{}, err
	}
	return ports.NewTable(values), nil
}

// InvalidateCache forces the next call to hit the API.
func (c *Client) InvalidateCache() {
	c.mu.Lock()
	c.cacheExpiresAt = time.Time{}
	c.mu.Unlock()
}

// values returns the sheet as strings. A fingerprint call always refreshes
// so that a change is seen; a read reuses a fresh cached copy.
func (c *Client) values(ctx context.Context, refresh bool) ([][]string, error) {
	c.mu.Lock()
	if !refresh && c.cachedValues != nil && time.Now().Before(c.cacheExpiresAt) {
		out := c.cachedValues
		c.mu.Unlock()
		return out, nil
	}
	c.mu.Unlock()

	if c.fetch == nil {
		return nil, errors.New("sheets service not initialized")
	}
	raw, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	out := make([][]string, len(raw))
	for i, row := range raw {
		out[i] = toStrings(row)
	}

	c.mu.Lock()
	c.cachedValues = out
	c.cacheExpiresAt = time.Now().Add(c.cacheValidDuration)
	c.mu.Unlock()
	return out, nil
}

// getValues reads the whole sheet with dates as serial numbers so that
// parsing does not depend on the spreadsheet locale.
func (c *Client) getValues(ctx context.Context) ([][]interface{}, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := quoteSheet(c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("SERIAL_NUMBER").
		Context(ctx).Do()
	if err != nil {
		return nil, classify(err, rng)
	}
	return resp.Values, nil
}

func classify(err error, rng string) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusNotFound:
			return fmt.Errorf("read %s: %w", rng, ports.ErrSourceNotFound)
		case http.StatusBadRequest:
			if strings.Contains(strings.ToLower(gerr.Message), "unable to parse range") {
				return fmt.Errorf("read %s: %w", rng, ports.ErrSheetNotFound)
			}
		}
	}
	return fmt.Errorf("read %s: %w", rng, err)
}

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch x := v.(type) {
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		case nil:
			out[i] = ""
		default:
			out[i] = strings.TrimSpace(fmt.Sprint(v))
		}
	}
	return out
}
