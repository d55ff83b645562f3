package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/fwdask/fwdask/config"
	"github.com/fwdask/fwdask/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStoreMemory(t *testing.T) {
	s, err := ParseStore(context.Background(), nil)
	require.NoError(t, err)
	defer s.Close()

	flows, err := s.FindBySource(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.Empty(t, flows)
}

func TestParseStoreRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	s, err := ParseStore(context.Background(), &config.StoreConfig{
		Redis: &config.RedisStoreConfig{Addr: mr.Addr(), Key: "test"},
	})
	require.NoError(t, err)
	defer s.Close()

	f := &flow.Flow{EthType: 0x0800, NetSource: "10.0.0.1", NetDestination: "10.0.0.2"}
	require.NoError(t, s.Insert(context.Background(), f))

	flows, err := s.FindByDestination(context.Background(), "10.0.0.2")
	require.NoError(t, err)
	require.Len(t, flows, 1)
	assert.Equal(t, "10.0.0.1", flows[0].NetSource)
	assert.True(t, mr.Exists("test:flows"))
}
