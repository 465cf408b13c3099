package demos_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uronshalav2/cs2discordbot-sub000/internal/demos"
)

const demoIndex = `{
	"demos": [
		{"name": "old.dem", "download_url": "http://files/old.dem", "size_formatted": "120 MB", "modified_at": "2025-05-01T10:00:00Z"},
		{"name": "newest.dem", "download_url": "http://files/newest.dem", "size_formatted": "95 MB", "modified_at": "2025-06-01T10:00:00Z"},
		{"name": "middle.dem", "download_url": "http://files/middle.dem", "size_formatted": "110 MB", "modified_at": "2025-05-15T10:00:00Z"}
	]
}`

func TestListNewestFirst(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(demoIndex))
	}))
	defer server.Close()

	list, err := demos.NewClient(server.URL).List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, "newest.dem", list[0].Name)
	require.Equal(t, "middle.dem", list[1].Name)
	require.Equal(t, "old.dem", list[2].Name)
}

func TestListUpstreamError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := demos.NewClient(server.URL).List(context.Background())
	require.ErrorIs(t, err, demos.ErrUnavailable)
}

func TestListMalformedBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	_, err := demos.NewClient(server.URL).List(context.Background())
	require.ErrorIs(t, err, demos.ErrUnavailable)
}

func TestListUnreachableHost(t *testing.T) {
	t.Parallel()

	// Reserved TEST-NET address, nothing listens there
	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()

	_, err := demos.NewClient("http://192.0.2.1:1/demos.json").List(ctx)
	require.ErrorIs(t, err, demos.ErrUnavailable)
}

func TestPage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(demoIndex))
	}))
	defer server.Close()

	client := demos.NewClient(server.URL)

	page, err := client.Page(context.Background(), 0, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.Equal(t, 3, page.Total)
	require.True(t, page.HasMore)

	page, err = client.Page(context.Background(), 10, 2)
	require.NoError(t, err)
	require.Empty(t, page.Items)
	require.False(t, page.HasMore)
}
