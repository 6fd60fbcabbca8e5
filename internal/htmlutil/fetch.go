// Package htmlutil holds helpers for adapters that scrape HTML pricing pages.
package htmlutil

import (
	"bytes"
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/everstacklabs/pricehub/internal/httpclient"
)

// Fetch retrieves url through the shared client and returns the parsed HTML
// document.
func Fetch(ctx context.Context, client *httpclient.Client, url string) (*goquery.Document, error) {
	resp, err := client.Get(ctx, url, map[string]string{"Accept": "text/html"})
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML from %s: %w", url, err)
	}
	return doc, nil
}
