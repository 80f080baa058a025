package notimplemented_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paddlefish-ml/paddlefish/backends"
	"github.com/paddlefish-ml/paddlefish/backends/notimplemented"
)

// stubBackend is what a backend looks like at the start of its implementation: only the
// identity methods are overridden, every kernel still comes from the embedded base.
type stubBackend struct {
	notimplemented.Backend
}

func (stubBackend) Name() string { return "stub" }

func TestEmbedding(t *testing.T) {
	var b backends.Backend = stubBackend{}
	assert.Equal(t, "stub", b.Name())
	assert.Equal(t, backends.DeviceNum(1), b.NumDevices())
	assert.False(t, b.HasSharedBuffers())

	_, err := b.Add(nil, nil)
	require.ErrorIs(t, err, backends.ErrNotImplemented)
	assert.ErrorContains(t, err, "in Add()")

	_, err = b.MatMul(nil, nil, false, true)
	require.ErrorIs(t, err, backends.ErrNotImplemented)

	_, err = b.BufferShape(nil)
	require.ErrorIs(t, err, backends.ErrNotImplemented)
	assert.ErrorContains(t, err, "in BufferShape()")
}
