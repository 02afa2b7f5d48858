package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/ballotdesk/internal/httpapi"
	"github.com/dshills/ballotdesk/internal/resource"
	"github.com/dshills/ballotdesk/internal/resource/memstore"
	"github.com/dshills/ballotdesk/internal/resource/resourcetest"
)

func newTestClient(t *testing.T, opts ...httpapi.Option) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(httpapi.NewServer(memstore.New(), opts...).Handler())
	t.Cleanup(srv.Close)
	client, err := New(srv.URL, WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return client, srv
}

func TestClientConformance(t *testing.T) {
	resourcetest.RunStoreTests(t, func(t *testing.T) resource.Store {
		client, _ := newTestClient(t)
		return client
	})
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("ftp://example.com")
	assert.Error(t, err)

	_, err = New("://bad")
	assert.Error(t, err)

	c, err := New("http://example.com/", WithTimeout(time.Second), WithToken("t"))
	require.NoError(t, err)
	assert.Equal(t, "http://example.com", c.baseURL)
	assert.Equal(t, time.Second, c.http.Timeout)
}

func TestClientToken(t *testing.T) {
	srv := httptest.NewServer(httpapi.NewServer(memstore.New(), httpapi.WithToken("secret")).Handler())
	defer srv.Close()
	ctx := context.Background()

	anonymous, err := New(srv.URL, WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	_, err = anonymous.ListGames(ctx)
	var apiErr *resource.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

	authed, err := New(srv.URL, WithHTTPClient(srv.Client()), WithToken("secret"))
	require.NoError(t, err)
	_, err = authed.ListGames(ctx)
	assert.NoError(t, err)
}

func TestClientNonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone fishing", http.StatusNotFound)
	}))
	defer srv.Close()

	client, err := New(srv.URL, WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	_, err = client.GetGame(context.Background(), "g1")
	assert.ErrorIs(t, err, resource.ErrNotFound)
	assert.Contains(t, err.Error(), "gone fishing")
}

func TestClientTransportError(t *testing.T) {
	_, srv := newTestClient(t)
	client, err := New(srv.URL)
	require.NoError(t, err)
	srv.Close()

	_, err = client.GetGame(context.Background(), "g1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, resource.ErrNotFound)
}
