package postgres

import (
	"testing"
	"time"

	"github.com/frc5024/fieldsim/internal/config"
	"github.com/frc5024/fieldsim/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func TestNew(t *testing.T) {
	b := New(config.DatabaseConfig{Host: "localhost"}, time.Second, nil)
	require.NotNil(t, b)
	assert.Nil(t, b.Backend)
	assert.NotNil(t, b.logger)
}

func TestClose_BeforeInit(t *testing.T) {
	b := New(config.DatabaseConfig{}, time.Second, nil)
	assert.NoError(t, b.Close())
}

func TestInit_Unreachable(t *testing.T) {
	b := New(config.DatabaseConfig{
		Host:     "127.0.0.1",
		Port:     "1",
		Username: "postgres",
		Password: "postgres",
		Database: "fieldsim",
	}, time.Second, nil)

	err := b.Init()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to postgres")
	assert.Nil(t, b.Backend)
	assert.NoError(t, b.Close())
}
