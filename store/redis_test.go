package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)

	s := NewRedisStore(mr.Addr(), KeyRedisOption("test"))
	defer s.Close()
	testStore(t, s)

	assert.True(t, mr.Exists("test:flows"))
	assert.True(t, mr.Exists("test:src:10.0.0.1"))
	assert.True(t, mr.Exists("test:dst:10.0.0.3"))
	items, err := mr.List("test:flows")
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestRedisStoreReadError(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedisStore(mr.Addr())
	defer s.Close()

	require.NoError(t, mr.Set(DefaultRedisKey+":src:10.0.0.1", "not a list"))
	_, err := s.FindBySource(context.Background(), "10.0.0.1")
	assert.ErrorIs(t, err, ErrStoreRead)

	mr.Close()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = s.FindByDestination(ctx, "10.0.0.2")
	assert.ErrorIs(t, err, ErrStoreRead)
	assert.Error(t, s.Insert(ctx, newTestFlow("10.0.0.1", "10.0.0.2", 80, time.Time{})))
}

func TestRedisStoreCorruptRecord(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedisStore(mr.Addr())
	defer s.Close()

	_, err := mr.Push(DefaultRedisKey+":dst:10.0.0.2", "{bad json")
	require.NoError(t, err)
	_, err = s.FindByDestination(context.Background(), "10.0.0.2")
	assert.ErrorIs(t, err, ErrStoreRead)
}
