package plugin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fwdask/fwdask/evaluator"
	"github.com/fwdask/fwdask/flow"
	"github.com/fwdask/fwdask/internal/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFlow() *flow.Flow {
	return &flow.Flow{
		EthType:              0x0800,
		SourceMac:            "00:00:00:00:00:01",
		DestinationMac:       "00:00:00:00:00:02",
		NetProtocol:          6,
		NetSource:            "10.0.0.1",
		NetDestination:       "10.0.0.2",
		TransportSource:      40000,
		TransportDestination: 80,
	}
}

func TestHTTPPlugin(t *testing.T) {
	var got httpPluginRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "1", r.Header.Get("X-Test"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(httpPluginResponse{WantsFlow: true, Confidence: 65})
	}))
	defer srv.Close()

	e := NewHTTPPlugin("test", srv.URL,
		plugin.TokenOption("secret"),
		plugin.HeaderOption(http.Header{"X-Test": []string{"1"}}),
	)
	f := testFlow()
	o := e.Opine(context.Background(), f, nil)
	assert.Equal(t, evaluator.Opinion{WantsFlow: true, Confidence: 65}, o)

	fp, _ := f.Fingerprint()
	assert.Equal(t, fp, got.Fingerprint)
	assert.Equal(t, f, got.Flow)
}

func TestHTTPPluginFallback(t *testing.T) {
	handlers := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"body": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		},
		"range": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"wantsFlow":true,"confidence":120}`))
		},
		"slow": func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(500 * time.Millisecond)
			w.Write([]byte(`{"wantsFlow":true,"confidence":90}`))
		},
	}
	for name, h := range handlers {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()

			e := NewHTTPPlugin(name, srv.URL, plugin.TimeoutOption(100*time.Millisecond))
			assert.Equal(t, fallback, e.Opine(context.Background(), testFlow(), nil))
		})
	}
}

func TestGRPCPluginUnreachable(t *testing.T) {
	e := NewGRPCPlugin("test", "127.0.0.1:1", plugin.TimeoutOption(time.Second))
	defer e.(interface{ Close() error }).Close()

	assert.Equal(t, fallback, e.Opine(context.Background(), testFlow(), nil))
}

func TestSourceAddr(t *testing.T) {
	f := testFlow()
	assert.Equal(t, "10.0.0.1:40000", sourceAddr(f))

	f.NetProtocol = 47
	assert.Equal(t, "10.0.0.1", sourceAddr(f))

	f = &flow.Flow{EthType: 0x86DD, NetProtocol: 6, NetSource: "2001:db8::1", TransportSource: 443}
	assert.Equal(t, "[2001:db8::1]:443", sourceAddr(f))

	f = &flow.Flow{EthType: 0x0806, SourceMac: "00:00:00:00:00:01"}
	assert.Equal(t, "00:00:00:00:00:01", sourceAddr(f))
}
