// Package remote downloads the adhesion workbook over HTTP.
package remote

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/carlmjohnson/requests"

	ports "a3p/internal/sheets"
	"a3p/internal/sheets/excel"
)

// Source is a workbook published at a URL.
type Source struct {
	url    string
	sheet  string
	client *http.Client
}

var _ ports.TableSource = (*Source)(nil)

// New returns a source for url. A nil client gets a 30s timeout.
func New(url, sheet string, client *http.Client) *Source {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Source{url: url, sheet: sheet, client: client}
}

func (s *Source) Name() string {
	return fmt.Sprintf("remote:%s#%s", s.url, s.sheet)
}

// Fingerprint asks the server for validators with a HEAD request. Servers
// that send neither ETag nor Last-Modified are fingerprinted by content.
func (s *Source) Fingerprint(ctx context.Context) (string, error) {
	h := http.Header{}
	err := requests.
		URL(s.url).
		Client(s.client).
		Head().
		Handle(requests.ToHeaders(h)).
		Fetch(ctx)
	if err != nil {
		if requests.HasStatusErr(err, http.StatusNotFound, http.StatusGone) {
			return "", fmt.Errorf("%s: %w", s.url, ports.ErrSourceNotFound)
		}
		return "", fmt.Errorf("head %s: %w", s.url, err)
	}
	etag := strings.TrimSpace(h.Get("ETag"))
	modified := strings.TrimSpace(h.Get("Last-Modified"))
	if etag != "" || modified != "" {
		return etag + "|" + modified, nil
	}

	body, err := s.download(ctx)
	if err != nil {
		return "", err
	}
	sum := sha1.Sum(body.Bytes())
	return "sha1:" + hex.EncodeToString(sum[:]), nil
}

func (s *Source) ReadTable(ctx context.Context) (ports.Table, error) {
	body, err := s.download(ctx)
	if err != nil {
		return ports.Table{}, err
	}
	return excel.ReadReader(body, s.sheet)
}

func (s *Source) download(ctx context.Context) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	err := requests.
		URL(s.url).
		Client(s.client).
		ToBytesBuffer(&buf).
		Fetch(ctx)
	if err != nil {
		if requests.HasStatusErr(err, http.StatusNotFound, http.StatusGone) {
			return nil, fmt.Errorf("%s: %w", s.url, ports.ErrSourceNotFound)
		}
		return nil, fmt.Errorf("download %s: %w", s.url, err)
	}
	return &buf, nil
}
