package recorder

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/fwdask/fwdask/config"
	"github.com/fwdask/fwdask/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecorderFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit", "decisions.log")

	r := ParseRecorder(&config.RecorderConfig{
		Name: "file",
		File: &config.FileRecorder{Path: path},
	})
	require.NotNil(t, r)
	require.NoError(t, r.Record(context.Background(), []byte(`{"id":"1"}`)))
	require.NoError(t, r.(io.Closer).Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\"id\":\"1\"}\n", string(b))
}

func TestParseRecorderRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	r := ParseRecorder(&config.RecorderConfig{
		Name:  "redis",
		Redis: &config.RedisRecorder{Addr: mr.Addr(), Key: "audit"},
	})
	require.NotNil(t, r)
	require.NoError(t, r.Record(context.Background(), []byte("a")))

	list, err := mr.List("audit")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, list)

	r = ParseRecorder(&config.RecorderConfig{
		Name:  "sset",
		Redis: &config.RedisRecorder{Addr: mr.Addr(), Key: "audit-sorted", Type: "sset"},
	})
	require.NoError(t, r.Record(context.Background(), []byte("b")))
	members, err := mr.ZMembers("audit-sorted")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, members)
}

func TestParseRecorderKinds(t *testing.T) {
	for _, cfg := range []*config.RecorderConfig{
		{Name: "tcp", TCP: &config.TCPRecorder{Addr: "127.0.0.1:9000"}},
		{Name: "http", HTTP: &config.HTTPRecorder{URL: "http://127.0.0.1:9000", Header: map[string]string{"X-Test": "1"}}},
		{Name: "grpc", Plugin: &config.PluginConfig{Addr: "127.0.0.1:9000"}},
		{Name: "plugin-http", Plugin: &config.PluginConfig{Type: "http", Addr: "http://127.0.0.1:9000"}},
	} {
		assert.NotNil(t, ParseRecorder(cfg), cfg.Name)
	}

	assert.Nil(t, ParseRecorder(&config.RecorderConfig{Name: "empty"}))
	assert.Nil(t, ParseRecorder(nil))
}

func TestList(t *testing.T) {
	mr := miniredis.RunT(t)
	r := ParseRecorder(&config.RecorderConfig{
		Name:  "test-redis",
		Redis: &config.RedisRecorder{Addr: mr.Addr(), Key: "audit"},
	})
	require.NoError(t, registry.RecorderRegistry().Register("test-redis", r))
	defer registry.RecorderRegistry().Unregister("test-redis")

	recorders := List("test-redis", "test-missing")
	require.Len(t, recorders, 1)
	require.NoError(t, recorders[0].Record(context.Background(), []byte("c")))

	list, err := mr.List("audit")
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, list)
}
