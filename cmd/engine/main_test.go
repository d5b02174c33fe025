package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordpot/round-engine/internal/config"
)

func TestSealerFromConfig_RequiresKeyForPersistedStore(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Type = "badger"
	cfg.Storage.Directory = t.TempDir()

	_, err := sealerFromConfig(cfg)
	assert.ErrorContains(t, err, "seal_key")

	cfg.Engine.SealKey = "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"
	sealer, err := sealerFromConfig(cfg)
	require.NoError(t, err)
	assert.NotNil(t, sealer)
}

func TestSealerFromConfig_EphemeralFallback(t *testing.T) {
	cfg := config.Default()

	sealer, err := sealerFromConfig(cfg)
	require.NoError(t, err)
	assert.NotNil(t, sealer, "memory storage starts empty, a random sealer is fine")
}
