package storage

import (
	"context"
	"fmt"
	"time"
)

// SaveWebPage stores the text of an ingested page, replacing an earlier
// fetch of the same URL.
func (db *DB) SaveWebPage(ctx context.Context, page *WebPage) error {
	fetchedAt := page.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}
	_, err := db.writer.ExecContext(ctx, `
		INSERT INTO web_pages (url, title, content, fetched_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			fetched_at = excluded.fetched_at`,
		page.URL, page.Title, page.Content, fetchedAt.Unix())
	if err != nil {
		return fmt.Errorf("save web page: %w", err)
	}
	return nil
}

// ListWebPages returns every ingested page ordered by URL.
func (db *DB) ListWebPages(ctx context.Context) ([]WebPage, error) {
	rows, err := db.reader.QueryContext(ctx,
		`SELECT url, title, content, fetched_at FROM web_pages ORDER BY url`)
	if err != nil {
		return nil, fmt.Errorf("list web pages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var pages []WebPage
	for rows.Next() {
		var (
			p  WebPage
			ts int64
		)
		if err := rows.Scan(&p.URL, &p.Title, &p.Content, &ts); err != nil {
			return nil, fmt.Errorf("scan web page: %w", err)
		}
		p.FetchedAt = time.Unix(ts, 0)
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// DeleteWebPage removes an ingested page. Returns false when it did not exist.
func (db *DB) DeleteWebPage(ctx context.Context, url string) (bool, error) {
	res, err := db.writer.ExecContext(ctx, `DELETE FROM web_pages WHERE url = ?`, url)
	if err != nil {
		return false, fmt.Errorf("delete web page: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
