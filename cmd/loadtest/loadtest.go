// Command loadtest drives a running server with concurrent users, each of
// which signs up, logs in, posts messages and reads them back.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type client struct {
	base  string
	http  *http.Client
	token string
}

func (c *client) call(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, r)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("%s %s: %d %s", method, path, res.StatusCode, bytes.TrimSpace(msg))
	}
	if out == nil {
		return nil
	}

	return json.NewDecoder(res.Body).Decode(out)
}

func session(ctx context.Context, base string, messages int, sent *atomic.Int64) error {
	c := &client{base: base, http: &http.Client{Timeout: 10 * time.Second}}
	creds := map[string]string{"username": "load-" + uuid.NewString(), "password": uuid.NewString()}

	if err := c.call(ctx, http.MethodPost, "/users/register", creds, nil); err != nil {
		return err
	}

	var login struct {
		Token string `json:"token"`
	}
	if err := c.call(ctx, http.MethodPost, "/users/login", creds, &login); err != nil {
		return err
	}
	c.token = login.Token

	for i := range messages {
		msg := map[string]string{"type": "text", "text": fmt.Sprintf("load message %d", i)}
		if err := c.call(ctx, http.MethodPost, "/messages", msg, nil); err != nil {
			return err
		}
		sent.Add(1)
	}

	var page []json.RawMessage
	if err := c.call(ctx, http.MethodGet, "/messages?page=1", nil, &page); err != nil {
		return err
	}
	if want := min(messages, 10); len(page) != want {
		return fmt.Errorf("page 1 has %d messages, want %d", len(page), want)
	}

	return c.call(ctx, http.MethodDelete, "/messages", nil, nil)
}

func main() {
	base := flag.String("url", "http://localhost:8080", "server base URL")
	users := flag.Int("users", 10, "concurrent users")
	messages := flag.Int("messages", 20, "messages per user")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var sent atomic.Int64
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	for range *users {
		g.Go(func() error { return session(ctx, *base, *messages, &sent) })
	}

	err := g.Wait()
	elapsed := time.Since(start)
	slog.Info("load test finished",
		slog.Int("users", *users),
		slog.Int64("messages_sent", sent.Load()),
		slog.Duration("elapsed", elapsed),
		slog.Float64("messages_per_sec", float64(sent.Load())/elapsed.Seconds()))

	if err != nil {
		slog.Error("load test failed", slog.Any("error", err))
		os.Exit(1)
	}
}
