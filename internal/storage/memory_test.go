package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_SaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	key := DeviceKey("dev1")

	_, err := m.Load(ctx, key)
	require.ErrorIs(t, err, ErrNotFound)

	buf := []byte(`{"currentUser":"abc"}`)
	require.NoError(t, m.Save(ctx, key, buf))
	buf[0] = 'X' // caller keeps ownership of its slice

	got, err := m.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `{"currentUser":"abc"}`, string(got))

	require.NoError(t, m.Delete(ctx, key))
	_, err = m.Load(ctx, key)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.Delete(ctx, key), "deleting a missing key is fine")
}

func TestDeviceKey(t *testing.T) {
	assert.Equal(t, "abc:gameSyState", DeviceKey("abc"))
	assert.NotEqual(t, DeviceKey("a"), DeviceKey("b"))
}
