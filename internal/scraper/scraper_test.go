package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/campussathi/campussathi-go/internal/errors"
)

func testClient() *Client {
	return NewClient(Options{
		Timeout:           2 * time.Second,
		MaxRetries:        2,
		InitialDelay:      time.Millisecond,
		RequestsPerMinute: 60000,
	})
}

const admissionsPage = `<html><head><title> Admissions | Campus </title><script>var x=1;</script></head>
<body>
<nav><a href="/">Home</a></nav>
<main>
  <h1>Admissions 2025</h1>
  <p>Applications open on   1 June.</p>
  <ul><li>Bring ID proof</li><li><p>Bring 2 photos</p></li></ul>
  <table><tr><td>Fee</td><td>₹50,000</td></tr></table>
</main>
<footer>© College</footer>
</body></html>`

func TestExtractText(t *testing.T) {
	t.Parallel()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(admissionsPage))
	require.NoError(t, err)

	page := ExtractText(doc)
	assert.Equal(t, "Admissions | Campus", page.Title)
	assert.Equal(t, "Admissions 2025\nApplications open on 1 June.\nBring ID proof\nBring 2 photos\nFee\n₹50,000", page.Text)
	assert.NotContains(t, page.Text, "Home")
	assert.NotContains(t, page.Text, "var x")
}

func TestExtractText_NoBlocks(t *testing.T) {
	t.Parallel()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body><div>Just   text</div></body></html>"))
	require.NoError(t, err)
	assert.Equal(t, "Just text", ExtractText(doc).Text)
}

func TestClient_Fetch(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, admissionsPage)
	}))
	defer srv.Close()

	page, err := testClient().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, page.Text, "Applications open on 1 June.")
}

func TestClient_DecodesLegacyCharset(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=ISO-8859-1")
		// "Café" with é encoded as a single Latin-1 byte.
		_, _ = w.Write([]byte("<html><body><p>Caf\xe9 timings</p></body></html>"))
	}))
	defer srv.Close()

	page, err := testClient().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Café timings", page.Text)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	t.Parallel()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, "<p>ok</p>")
	}))
	defer srv.Close()

	page, err := testClient().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", page.Text)
	assert.Equal(t, int32(2), hits.Load())
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testClient().Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, int32(1), hits.Load())
}

func TestRetryWithBackoff(t *testing.T) {
	t.Parallel()

	t.Run("succeeds after transient failures", func(t *testing.T) {
		t.Parallel()
		attempts := 0
		err := RetryWithBackoff(context.Background(), 5, time.Millisecond, func() error {
			attempts++
			if attempts < 3 {
				return errors.New("server error")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		t.Parallel()
		attempts := 0
		err := RetryWithBackoff(context.Background(), 3, time.Millisecond, func() error {
			attempts++
			return errors.New("still down")
		})
		require.EqualError(t, err, "still down")
		assert.Equal(t, 4, attempts)
	})

	t.Run("stops on permanent error", func(t *testing.T) {
		t.Parallel()
		attempts := 0
		err := RetryWithBackoff(context.Background(), 3, time.Millisecond, func() error {
			attempts++
			return &permanentError{err: errors.New("forbidden")}
		})
		require.EqualError(t, err, "forbidden")
		assert.Equal(t, 1, attempts)
	})

	t.Run("honours cancellation", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		err := RetryWithBackoff(ctx, 5, 50*time.Millisecond, func() error {
			cancel()
			return errors.New("boom")
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsNetworkError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"permanent", &permanentError{err: errors.New("client error")}, false},
		{"wrapped permanent", fmt.Errorf("wrapped: %w", &permanentError{err: errors.New("connection refused")}), false},
		{"timeout", timeoutErr{}, true},
		{"refused", errors.New("dial tcp 127.0.0.1:80: connection refused"), true},
		{"server error", errors.New("server error for x: status 502"), true},
		{"fetch 503", apperrors.NewFetchError("x", 503, errors.New("server error")), true},
		{"fetch 429", apperrors.NewFetchError("x", 429, errors.New("rate limited")), true},
		{"fetch 404", apperrors.NewFetchError("x", 404, errors.New("client error")), false},
		{"generic", errors.New("something went wrong"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsNetworkError(tt.err))
		})
	}
}
