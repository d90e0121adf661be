package harvester

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethgrid/pester"

	"journal-index/config"
)

// Fetcher holt eine URL und liefert Body und HTTP-Status. Die Abstraktion
// existiert, damit die Paginierung ohne Netz testbar ist.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, int, error)
}

// HTTPFetcher ist der produktive Fetcher mit Retry-Verhalten für die
// notorisch wackeligen OJS-Installationen.
type HTTPFetcher struct {
	client    *pester.Client
	userAgent string
}

// NewHTTPFetcher erzeugt einen Fetcher gemäß Konfiguration.
func NewHTTPFetcher(cfg *config.Config) *HTTPFetcher {
	c := pester.New()
	c.Timeout = time.Duration(cfg.HTTPTimeout) * time.Second
	c.MaxRetries = cfg.HTTPRetries
	c.Backoff = pester.ExponentialBackoff
	c.Concurrency = 1
	return &HTTPFetcher{client: c, userAgent: cfg.UserAgent}
}

// Get holt die URL per GET. Nicht-2xx-Status ist hier kein Fehler; der
// Aufrufer entscheidet anhand des Statuscodes.
func (f *HTTPFetcher) Get(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request %s: %w", url, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/xml, text/xml, application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body %s: %w", url, err)
	}
	return body, resp.StatusCode, nil
}
