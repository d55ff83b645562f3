package registry

import (
	"context"
	"testing"

	"github.com/fwdask/fwdask/evaluator"
	"github.com/fwdask/fwdask/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closer struct {
	closed bool
}

func (c *closer) Close() error {
	c.closed = true
	return nil
}

func TestRegistry(t *testing.T) {
	r := new(registry[*closer])

	c := &closer{}
	require.NoError(t, r.Register("a", c))
	assert.ErrorIs(t, r.Register("a", &closer{}), ErrDup)
	assert.NoError(t, r.Register("", &closer{}))
	require.NoError(t, r.Register("b", &closer{}))

	assert.True(t, r.IsRegistered("a"))
	assert.Same(t, c, r.Get("a"))
	assert.Nil(t, r.Get(""))
	assert.Len(t, r.GetAll(), 2)
	assert.Equal(t, []string{"a", "b"}, r.Names())

	r.Unregister("a")
	assert.True(t, c.closed)
	assert.False(t, r.IsRegistered("a"))
}

func TestEvaluatorRegistry(t *testing.T) {
	r := new(evaluatorRegistry)
	require.NoError(t, r.Register("drop", evaluator.AlwaysDrop()))

	w := r.Get("drop")
	require.NotNil(t, w)
	assert.Equal(t, "drop", w.(interface{ Name() string }).Name())
	assert.Equal(t, evaluator.Opinion{WantsFlow: false, Confidence: 70}, w.Opine(context.Background(), &flow.Flow{}, nil))

	r.Unregister("drop")
	assert.Equal(t, evaluator.Opinion{}, w.Opine(context.Background(), &flow.Flow{}, nil))
	assert.Nil(t, r.Get(""))
}

type recorderFunc func(ctx context.Context, b []byte) error

func (fn recorderFunc) Record(ctx context.Context, b []byte) error {
	return fn(ctx, b)
}

func TestRecorderRegistry(t *testing.T) {
	r := new(recorderRegistry)
	var got []byte
	require.NoError(t, r.Register("audit", recorderFunc(func(ctx context.Context, b []byte) error {
		got = b
		return nil
	})))

	w := r.Get("audit")
	require.NoError(t, w.Record(context.Background(), []byte("x")))
	assert.Equal(t, "x", string(got))

	assert.NoError(t, r.Get("missing").Record(context.Background(), []byte("y")))
}
