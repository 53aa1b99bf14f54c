package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplement-scout/internal/cache"
	"supplement-scout/internal/common/errors"
)

func testConfig() *Config {
	config := DefaultConfig()
	config.RetryDelay = time.Millisecond
	config.Timeout = 2 * time.Second
	config.RateLimit = 1000
	config.RateWindow = time.Second
	return config
}

func newTestClient(t *testing.T, config *Config) (*Client, cache.Cache) {
	t.Helper()
	c := cache.NewLocalCache(time.Hour, time.Hour)
	client, err := NewClient(config, c, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, c
}

func TestGet_CachesSuccessfulResponses(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(`{"id": 1}`))
	}))
	defer server.Close()

	client, _ := newTestClient(t, testConfig())
	ctx := context.Background()

	first, err := client.Get(ctx, server.URL+"/label/1", nil, nil)
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.True(t, first.IsSuccess())

	second, err := client.Get(ctx, server.URL+"/label/1", nil, nil)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Body, second.Body)

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestGet_DoesNotCacheFailures(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client, _ := newTestClient(t, testConfig())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		resp, err := client.Get(ctx, server.URL+"/label/404", nil, nil)
		require.NoError(t, err)
		assert.False(t, resp.FromCache)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	}

	// Both calls reached the network
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestGet_NoCacheOptionBypassesCache(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(`ok`))
	}))
	defer server.Close()

	client, _ := newTestClient(t, testConfig())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := client.Get(ctx, server.URL, nil, &Options{NoCache: true})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestGet_RetriesTransientStatuses(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`recovered`))
	}))
	defer server.Close()

	client, _ := newTestClient(t, testConfig())

	resp, err := client.Get(context.Background(), server.URL, nil, nil)
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())
	assert.Equal(t, []byte(`recovered`), resp.Body)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestGet_FailsAfterRetryBudget(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, _ := newTestClient(t, testConfig())

	_, err := client.Get(context.Background(), server.URL, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeFetch))
}

func TestGet_ParamsBecomeQueryAndCacheKeyIsOrderInsensitive(t *testing.T) {
	var lastQuery url.Values
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		lastQuery = r.URL.Query()
		w.Write([]byte(`ok`))
	}))
	defer server.Close()

	client, _ := newTestClient(t, testConfig())
	ctx := context.Background()

	_, err := client.Get(ctx, server.URL+"/search", map[string]string{"q": "zinc", "limit": "5"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "zinc", lastQuery.Get("q"))
	assert.Equal(t, "5", lastQuery.Get("limit"))

	// Same params already encoded in the URL hit the cache
	resp, err := client.Get(ctx, server.URL+"/search?limit=5&q=zinc", nil, nil)
	require.NoError(t, err)
	assert.True(t, resp.FromCache)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestGet_SendsAPIKeyForCatalogHost(t *testing.T) {
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Api-Key")
		w.Write([]byte(`ok`))
	}))
	defer server.Close()

	u, err := url.Parse(server.URL)
	require.NoError(t, err)

	config := testConfig()
	config.CatalogHost = u.Host
	config.CatalogAPIKey = "secret-key"
	client, _ := newTestClient(t, config)

	_, err = client.Get(context.Background(), server.URL, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "secret-key", gotKey)
}

func TestGetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte(`{"name": "zinc"}`))
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/broken":
			w.Write([]byte(`{invalid`))
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer server.Close()

	client, _ := newTestClient(t, testConfig())
	ctx := context.Background()

	t.Run("decodes valid documents", func(t *testing.T) {
		var out struct {
			Name string `json:"name"`
		}
		require.NoError(t, client.GetJSON(ctx, server.URL+"/ok", nil, nil, &out))
		assert.Equal(t, "zinc", out.Name)
	})

	t.Run("404 maps to not_found", func(t *testing.T) {
		err := client.GetJSON(ctx, server.URL+"/missing", nil, nil, &struct{}{})
		assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
	})

	t.Run("other failures map to fetch errors", func(t *testing.T) {
		err := client.GetJSON(ctx, server.URL+"/other", nil, nil, &struct{}{})
		assert.True(t, errors.IsType(err, errors.ErrTypeFetch))
	})

	t.Run("invalid body maps to data_shape", func(t *testing.T) {
		err := client.GetJSON(ctx, server.URL+"/broken", nil, nil, &struct{}{})
		assert.True(t, errors.IsType(err, errors.ErrTypeDataShape))
	})
}

func TestCacheKey(t *testing.T) {
	a := cacheKey("https://host/path?b=2&a=1")
	b := cacheKey("https://host/path?a=1&b=2")
	assert.Equal(t, a, b)

	c := cacheKey("https://host/path?a=1&b=3")
	assert.NotEqual(t, a, c)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.Timeout = 0
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.MaxRetries = -1
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.RateLimit = 0
	assert.Error(t, bad.Validate())
}
