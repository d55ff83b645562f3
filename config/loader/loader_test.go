package loader

import (
	"context"
	"testing"

	"github.com/fwdask/fwdask/config"
	"github.com/fwdask/fwdask/engine"
	"github.com/fwdask/fwdask/flow"
	"github.com/fwdask/fwdask/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Log: &config.LogConfig{Output: "none"},
		Engine: &config.EngineConfig{
			ExemptEthTypes: []string{"arp", "0x88cc"},
			Evaluators:     []string{"allow", "missing"},
		},
		Evaluators: []*config.EvaluatorConfig{
			{Name: "baseline", Constant: &config.OpinionConfig{WantsFlow: false, Confidence: 70}},
			{Name: "allow", Constant: &config.OpinionConfig{WantsFlow: true, Confidence: 90}},
			{Name: "broken", Constant: &config.OpinionConfig{WantsFlow: true, Confidence: 101}},
		},
		Confirm: &config.ConfirmConfig{
			Auto: &config.AutoConfirmConfig{Threshold: 50},
		},
	}
}

func TestLoad(t *testing.T) {
	rt, err := Load(context.Background(), testConfig())
	require.NoError(t, err)
	defer rt.Close()

	assert.Nil(t, rt.Console)
	assert.Equal(t, []string{"allow"}, rt.Engine.Evaluators())
	assert.False(t, registry.EvaluatorRegistry().IsRegistered("broken"))
	assert.True(t, registry.EvaluatorRegistry().IsRegistered("baseline"))

	assert.True(t, rt.Engine.IsExempt(&flow.Flow{EthType: 0x88cc}))
	assert.False(t, rt.Engine.IsExempt(&flow.Flow{EthType: 0x0800}))

	d, err := rt.Engine.Decide(context.Background(), &flow.Flow{
		EthType:        0x0800,
		NetSource:      "10.0.0.1",
		NetDestination: "10.0.0.2",
	})
	require.NoError(t, err)
	assert.Equal(t, engine.Forward, d.Verdict)
}

func TestLoadAllEvaluators(t *testing.T) {
	cfg := testConfig()
	cfg.Engine.Evaluators = nil

	rt, err := Load(context.Background(), cfg)
	require.NoError(t, err)
	defer rt.Close()

	assert.Equal(t, []string{"baseline", "allow"}, rt.Engine.Evaluators())
}

func TestLoadWebSocketConsole(t *testing.T) {
	cfg := testConfig()
	cfg.Confirm = nil

	rt, err := Load(context.Background(), cfg)
	require.NoError(t, err)
	defer rt.Close()

	assert.NotNil(t, rt.Console)
}

func TestLoadInvalidEthType(t *testing.T) {
	cfg := testConfig()
	cfg.Engine.ExemptEthTypes = []string{"ipx"}

	_, err := Load(context.Background(), cfg)
	assert.Error(t, err)
}
