package confirm

import (
	"context"
	"testing"

	"github.com/fwdask/fwdask/config"
	"github.com/fwdask/fwdask/confirm"
	"github.com/fwdask/fwdask/evaluator"
	"github.com/fwdask/fwdask/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfirmerAuto(t *testing.T) {
	c, console, err := ParseConfirmer(&config.ConfirmConfig{
		Auto: &config.AutoConfirmConfig{Threshold: 90, Default: "forward"},
	})
	require.NoError(t, err)
	assert.Nil(t, console)

	answer, err := c.Ask(context.Background(), &flow.Flow{}, &evaluator.Opinion{WantsFlow: false, Confidence: 80})
	require.NoError(t, err)
	assert.Equal(t, confirm.Forward, answer)

	answer, err = c.Ask(context.Background(), &flow.Flow{}, &evaluator.Opinion{WantsFlow: false, Confidence: 95})
	require.NoError(t, err)
	assert.Equal(t, confirm.Drop, answer)

	_, _, err = ParseConfirmer(&config.ConfirmConfig{
		Auto: &config.AutoConfirmConfig{Default: "maybe"},
	})
	assert.Error(t, err)
}

func TestParseConfirmerWebSocket(t *testing.T) {
	c, console, err := ParseConfirmer(nil)
	require.NoError(t, err)
	require.NotNil(t, console)
	assert.Equal(t, confirm.Confirmer(console), c)
	console.Close()
}
