package reactor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHandler struct{ handle int }

func (s *stubHandler) Handle() int { return s.handle }
func (s *stubHandler) OnReadable() {}
func (s *stubHandler) OnWritable() {}

func TestRegistryPutGet(t *testing.T) {
	r := newRegistry()
	h := &stubHandler{handle: 7}

	require.NoError(t, r.put(7, h))

	got, ok := r.get(7)
	require.True(t, ok)
	assert.Same(t, h, got)
}

func TestRegistryPutDuplicateFails(t *testing.T) {
	r := newRegistry()
	require.NoError(t, r.put(3, &stubHandler{handle: 3}))

	err := r.put(3, &stubHandler{handle: 3})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAlreadyRegistered))
}

func TestRegistryGetMissingReturnsFalse(t *testing.T) {
	r := newRegistry()
	_, ok := r.get(42)
	assert.False(t, ok)
}

func TestRegistryDeleteThenGetMisses(t *testing.T) {
	r := newRegistry()
	require.NoError(t, r.put(1, &stubHandler{handle: 1}))
	r.delete(1)
	_, ok := r.get(1)
	assert.False(t, ok)
}

func TestRegistryDeleteMissingIsNoop(t *testing.T) {
	r := newRegistry()
	assert.NotPanics(t, func() { r.delete(99) })
}

func TestRegistryLenTracksMembership(t *testing.T) {
	r := newRegistry()
	assert.Equal(t, 0, r.len())
	require.NoError(t, r.put(1, &stubHandler{handle: 1}))
	require.NoError(t, r.put(2, &stubHandler{handle: 2}))
	assert.Equal(t, 2, r.len())
	r.delete(1)
	assert.Equal(t, 1, r.len())
}

func TestRegistryAllowsReuseOfHandleAfterDelete(t *testing.T) {
	r := newRegistry()
	require.NoError(t, r.put(5, &stubHandler{handle: 5}))
	r.delete(5)
	require.NoError(t, r.put(5, &stubHandler{handle: 5}))
}
