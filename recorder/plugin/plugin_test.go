package plugin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fwdask/fwdask/internal/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPPlugin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		var req httpPluginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(httpPluginResponse{OK: string(req.Data) == "record"})
	}))
	defer srv.Close()

	p := NewHTTPPlugin("audit", srv.URL, plugin.TokenOption("secret"))
	require.NoError(t, p.Record(context.Background(), []byte("record")))
	assert.Error(t, p.Record(context.Background(), []byte("other")))
	assert.NoError(t, p.Record(context.Background(), nil))
}

func TestHTTPPluginUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewHTTPPlugin("audit", srv.URL)
	assert.Error(t, p.Record(context.Background(), []byte("record")))
}

func TestGRPCPluginUnreachable(t *testing.T) {
	p := NewGRPCPlugin("audit", "127.0.0.1:1", plugin.TimeoutOption(0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, p.Record(ctx, []byte("record")))
	assert.NoError(t, p.(interface{ Close() error }).Close())
}
