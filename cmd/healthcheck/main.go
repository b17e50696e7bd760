// Command healthcheck is the container HEALTHCHECK. It exits 1 unless the
// server on PORT answers 200, from /livez by default or /readyz with -ready.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"
)

func main() {
	ready := flag.Bool("ready", false, "probe /readyz instead of /livez")
	timeout := flag.Duration("timeout", 5*time.Second, "request timeout")
	flag.Parse()

	port := os.Getenv("PORT")
	if port == "" {
		port = "10000"
	}
	path := "/livez"
	if *ready {
		path = "/readyz"
	}

	if err := probe(fmt.Sprintf("http://127.0.0.1:%s%s", port, path), *timeout); err != nil {
		fmt.Fprintln(os.Stderr, "healthcheck:", err)
		os.Exit(1)
	}
}

func probe(url string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: HTTP %d", url, resp.StatusCode)
	}
	return nil
}
