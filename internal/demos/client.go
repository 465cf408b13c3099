// Package demos fetches the recorded demo index published by the game server's
// HTTP file listing.
package demos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/uronshalav2/cs2discordbot-sub000/internal/pager"
)

// ErrUnavailable is returned for any upstream failure: network, non-200
// status, or a response that does not decode. The cause is wrapped for logs;
// user-facing surfaces should show only this.
var ErrUnavailable = errors.New("demo list unavailable")

// Demo is one recorded demo file
type Demo struct {
	Name          string    `json:"name"`
	DownloadURL   string    `json:"download_url"`
	SizeFormatted string    `json:"size_formatted"`
	ModifiedAt    time.Time `json:"modified_at"`
}

type indexResponse struct {
	Demos []Demo `json:"demos"`
}

const (
	requestTimeout = 10 * time.Second
	maxBodySize    = 4 << 20
)

// Client fetches and pages the demo index. Requests are rate limited so a
// chatty caller cannot hammer the file server.
type Client struct {
	indexURL string
	http     *http.Client
	limiter  *rate.Limiter
}

// NewClient creates a client for the given index URL
func NewClient(indexURL string) *Client {
	return &Client{
		indexURL: indexURL,
		http:     &http.Client{Timeout: requestTimeout},
		limiter:  rate.NewLimiter(rate.Every(2*time.Second), 3),
	}
}

// List fetches the index and returns demos newest first
func (c *Client) List(ctx context.Context) ([]Demo, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.indexURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var index indexResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&index); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	demos := index.Demos
	sort.SliceStable(demos, func(i, j int) bool {
		return demos[i].ModifiedAt.After(demos[j].ModifiedAt)
	})
	return demos, nil
}

// Page fetches the index and returns one page of it
func (c *Client) Page(ctx context.Context, offset, limit int) (pager.Page[Demo], error) {
	demos, err := c.List(ctx)
	if err != nil {
		return pager.Page[Demo]{}, err
	}
	return pager.Slice(demos, offset, limit), nil
}
