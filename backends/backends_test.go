package backends_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paddlefish-ml/paddlefish/backends"
	_ "github.com/paddlefish-ml/paddlefish/backends/default"
)

func TestRegistry(t *testing.T) {
	require.Contains(t, backends.List(), "cpu")

	backend := backends.NewWithConfig("cpu")
	require.NotNil(t, backend)
	assert.Equal(t, "cpu", backend.Name())
	assert.False(t, backend.IsFinalized())
	backend.Finalize()
	assert.True(t, backend.IsFinalized())

	require.Panics(t, func() { backends.NewWithConfig("no-such-backend") })
}

func TestNewHonorsEnvVar(t *testing.T) {
	t.Setenv(backends.ConfigEnvVar, "cpu")
	backend := backends.New()
	defer backend.Finalize()
	assert.Equal(t, "cpu", backend.Name())
}

func TestConfigSplitsNameAndOptions(t *testing.T) {
	// The cpu backend ignores its options, so any suffix after ":" must still select it.
	backend := backends.NewWithConfig("cpu:whatever")
	defer backend.Finalize()
	assert.Equal(t, "cpu", backend.Name())
}

func TestMustNewAndNewOrErr(t *testing.T) {
	backend := backends.MustNew()
	assert.Equal(t, "cpu", backend.Name())
	backend.Finalize()

	backend, err := backends.NewOrErr()
	require.NoError(t, err)
	assert.Equal(t, "cpu", backend.Name())
	backend.Finalize()

	t.Setenv(backends.ConfigEnvVar, "no-such-backend")
	_, err = backends.NewOrErr()
	require.ErrorContains(t, err, "no-such-backend")
}
