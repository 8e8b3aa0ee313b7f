package symbols

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"optionsfetcher/internal/fetcher"
	"optionsfetcher/internal/ratelimit"
)

// DefaultColumn is the header of the symbol directory column holding tickers
const DefaultColumn = "Underlying"

// ResolutionError reports that the live symbol table could not be used
type ResolutionError struct {
	URL     string
	Message string
	Cause   error
}

func (e *ResolutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("symbol resolution from %s failed: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("symbol resolution from %s failed: %s", e.URL, e.Message)
}

func (e *ResolutionError) Unwrap() error {
	return e.Cause
}

// LiveSource scrapes the provider's symbol directory page
type LiveSource struct {
	client  fetcher.PageFetcher
	url     string
	column  string
	limiter *ratelimit.Limiter
}

// NewLiveSource creates a scraper for the table column named column on url
func NewLiveSource(client fetcher.PageFetcher, url, column string, limiter *ratelimit.Limiter) *LiveSource {
	if column == "" {
		column = DefaultColumn
	}
	return &LiveSource{client: client, url: url, column: column, limiter: limiter}
}

// Symbols fetches the page and returns the column values in table order
func (s *LiveSource) Symbols(ctx context.Context) ([]string, error) {
	if err := s.limiter.Wait(ctx, ratelimit.APISymbols); err != nil {
		return nil, &ResolutionError{URL: s.url, Message: "rate limiter", Cause: err}
	}

	page, err := s.client.FetchPage(ctx, s.url)
	if err != nil {
		return nil, &ResolutionError{URL: s.url, Message: "fetch failed", Cause: err}
	}

	values, err := ExtractColumn(page, s.column)
	if err != nil {
		return nil, &ResolutionError{URL: s.url, Message: "unusable table", Cause: err}
	}
	return values, nil
}

// ExtractColumn returns the non-empty cell values of the first table whose
// header row has a cell named column (case-insensitive).
func ExtractColumn(html, column string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var (
		values []string
		found  bool
	)
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		rows := table.Find("tr")
		if rows.Length() == 0 {
			return true
		}

		header := rows.First()
		idx := -1
		header.Children().Each(func(i int, cell *goquery.Selection) {
			if idx < 0 && strings.EqualFold(strings.TrimSpace(cell.Text()), column) {
				idx = i
			}
		})
		if idx < 0 {
			return true
		}

		found = true
		rows.Slice(1, rows.Length()).Each(func(_ int, row *goquery.Selection) {
			cell := row.Children().Eq(idx)
			if cell.Length() == 0 {
				return
			}
			if v := strings.TrimSpace(cell.Text()); v != "" {
				values = append(values, v)
			}
		})
		return false
	})

	if !found {
		return nil, fmt.Errorf("no table with column %q", column)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("column %q is empty", column)
	}
	return values, nil
}
