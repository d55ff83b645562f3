package evaluator

import (
	"context"
	"errors"
	"testing"

	"github.com/fwdask/fwdask/flow"
	"github.com/fwdask/fwdask/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) FindBySource(ctx context.Context, addr string) ([]*flow.Flow, error) {
	return nil, errors.Join(store.ErrStoreRead, errors.New("connection refused"))
}

func (failingReader) FindByDestination(ctx context.Context, addr string) ([]*flow.Flow, error) {
	return nil, errors.Join(store.ErrStoreRead, errors.New("connection refused"))
}

func TestHistoryEvaluator(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	e := NewHistoryEvaluator()

	f := ipv4Flow("10.0.0.1", "10.0.0.2")
	assert.Equal(t, Opinion{WantsFlow: false, Confidence: 20}, e.Opine(ctx, f, s))

	require.NoError(t, s.Insert(ctx, ipv4Flow("10.0.0.1", "10.0.0.2")))
	assert.Equal(t, Opinion{WantsFlow: true, Confidence: 60}, e.Opine(ctx, f, s))

	// replies count as history too
	require.NoError(t, s.Insert(ctx, ipv4Flow("10.0.0.2", "10.0.0.1")))
	assert.Equal(t, Opinion{WantsFlow: true, Confidence: 70}, e.Opine(ctx, f, s))

	// unrelated peers do not
	require.NoError(t, s.Insert(ctx, ipv4Flow("10.0.0.1", "10.0.0.3")))
	assert.Equal(t, Opinion{WantsFlow: true, Confidence: 70}, e.Opine(ctx, f, s))

	for i := 0; i < 10; i++ {
		require.NoError(t, s.Insert(ctx, ipv4Flow("10.0.0.1", "10.0.0.2")))
	}
	assert.Equal(t, Opinion{WantsFlow: true, Confidence: 95}, e.Opine(ctx, f, s))
}

func TestHistoryEvaluatorFallback(t *testing.T) {
	ctx := context.Background()
	fallback := Opinion{WantsFlow: false, Confidence: 5}
	e := NewHistoryEvaluator(FallbackHistoryOption(fallback))

	assert.Equal(t, fallback, e.Opine(ctx, ipv4Flow("10.0.0.1", "10.0.0.2"), failingReader{}))
	assert.Equal(t, fallback, e.Opine(ctx, ipv4Flow("10.0.0.1", "10.0.0.2"), nil))
	assert.Equal(t, fallback, e.Opine(ctx, &flow.Flow{EthType: 0x0806}, store.NewMemoryStore()))
}

func TestHistoryEvaluatorOptions(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	require.NoError(t, s.Insert(ctx, ipv4Flow("10.0.0.1", "10.0.0.2")))

	e := NewHistoryEvaluator(
		ConfidenceHistoryOption(10, 5, 200),
		UnknownPeerHistoryOption(Opinion{WantsFlow: true, Confidence: 1}),
	)
	assert.Equal(t, Opinion{WantsFlow: true, Confidence: 15}, e.Opine(ctx, ipv4Flow("10.0.0.1", "10.0.0.2"), s))
	assert.Equal(t, Opinion{WantsFlow: true, Confidence: 1}, e.Opine(ctx, ipv4Flow("10.0.0.7", "10.0.0.2"), s))
}
