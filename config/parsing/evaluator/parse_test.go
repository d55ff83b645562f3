package evaluator

import (
	"context"
	"testing"

	"github.com/fwdask/fwdask/config"
	"github.com/fwdask/fwdask/evaluator"
	"github.com/fwdask/fwdask/flow"
	"github.com/fwdask/fwdask/registry"
	"github.com/fwdask/fwdask/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEvaluator(t *testing.T) {
	for _, cfg := range []*config.EvaluatorConfig{
		{Name: "constant", Constant: &config.OpinionConfig{WantsFlow: true, Confidence: 10}},
		{Name: "list", List: &config.ListEvaluatorConfig{Matchers: []string{"10.0.0.0/8"}}},
		{Name: "history", History: &config.HistoryEvaluatorConfig{UnknownPeer: &config.OpinionConfig{Confidence: 60}}},
		{Name: "dns", DNS: &config.DNSEvaluatorConfig{Nameservers: []string{"127.0.0.1:53"}}},
		{Name: "grpc", Plugin: &config.PluginConfig{Addr: "127.0.0.1:8000"}},
		{Name: "http", Plugin: &config.PluginConfig{Type: "http", Addr: "http://127.0.0.1:8000/opine"}},
	} {
		ev, err := ParseEvaluator(cfg)
		require.NoError(t, err, cfg.Name)
		assert.NotNil(t, ev, cfg.Name)
	}
}

func TestParseEvaluatorErrors(t *testing.T) {
	_, err := ParseEvaluator(&config.EvaluatorConfig{Name: "empty"})
	assert.ErrorIs(t, err, ErrNoEvaluator)

	_, err = ParseEvaluator(&config.EvaluatorConfig{
		Name:     "invalid",
		Constant: &config.OpinionConfig{Confidence: -1},
	})
	assert.ErrorIs(t, err, evaluator.ErrConfidenceRange)

	_, err = ParseEvaluator(&config.EvaluatorConfig{
		Name:    "invalid",
		History: &config.HistoryEvaluatorConfig{UnknownPeer: &config.OpinionConfig{Confidence: 101}},
	})
	assert.Error(t, err)

	ev, err := ParseEvaluator(nil)
	assert.NoError(t, err)
	assert.Nil(t, ev)
}

func TestList(t *testing.T) {
	ev, err := ParseEvaluator(&config.EvaluatorConfig{
		Name:     "test-constant",
		Constant: &config.OpinionConfig{WantsFlow: true, Confidence: 42},
	})
	require.NoError(t, err)
	require.NoError(t, registry.EvaluatorRegistry().Register("test-constant", ev))
	defer registry.EvaluatorRegistry().Unregister("test-constant")

	evaluators := List("test-constant", "test-missing")
	require.Len(t, evaluators, 1)
	o := evaluators[0].Opine(context.Background(), &flow.Flow{}, store.NewMemoryStore())
	assert.Equal(t, evaluator.Opinion{WantsFlow: true, Confidence: 42}, o)
}
