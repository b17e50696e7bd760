package scraper

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// FetchGroup coalesces concurrent fetches of the same URL into one request.
type FetchGroup struct {
	group singleflight.Group
}

// Do runs fn once per key among concurrent callers and shares its result.
func (g *FetchGroup) Do(ctx context.Context, key string, fn func() (Page, error)) (Page, error) {
	v, err, _ := g.group.Do(key, func() (any, error) {
		if err := ctx.Err(); err != nil {
			return Page{}, err
		}
		return fn()
	})
	if err != nil {
		return Page{}, err
	}
	return v.(Page), nil
}

// Fetch downloads url and extracts its readable text, coalescing
// concurrent requests for the same url.
func (c *Client) Fetch(ctx context.Context, url string) (Page, error) {
	return c.fetches.Do(ctx, url, func() (Page, error) {
		doc, err := c.GetDocument(ctx, url)
		if err != nil {
			return Page{}, err
		}
		return ExtractText(doc), nil
	})
}
