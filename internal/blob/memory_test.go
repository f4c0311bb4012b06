package blob

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Read absent key", func(t *testing.T) {
		store := NewBroker().Open()
		_, found, err := store.Read(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("Write then read", func(t *testing.T) {
		store := NewBroker().Open()
		require.NoError(t, store.Write(ctx, "k", []byte("v1")))
		data, found, err := store.Read(ctx, "k")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, []byte("v1"), data)
	})

	t.Run("Handles share storage", func(t *testing.T) {
		broker := NewBroker()
		a := broker.Open()
		b := broker.Open()
		require.NoError(t, a.Write(ctx, "k", []byte("from-a")))

		data, found, err := b.Read(ctx, "k")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, []byte("from-a"), data)
	})

	t.Run("Writer is not notified of its own write", func(t *testing.T) {
		broker := NewBroker()
		a := broker.Open()
		b := broker.Open()

		var aGot, bGot int
		a.Subscribe(func(string, []byte) { aGot++ })
		b.Subscribe(func(string, []byte) { bGot++ })

		require.NoError(t, a.Write(ctx, "k", []byte("v")))
		assert.Equal(t, 0, aGot)
		assert.Equal(t, 1, bGot)
	})

	t.Run("Unsubscribe stops delivery", func(t *testing.T) {
		broker := NewBroker()
		a := broker.Open()
		b := broker.Open()

		var got int
		unsub := b.Subscribe(func(string, []byte) { got++ })
		require.NoError(t, a.Write(ctx, "k", []byte("v")))
		unsub()
		require.NoError(t, a.Write(ctx, "k", []byte("v2")))
		assert.Equal(t, 1, got)
	})

	t.Run("Closed handle no longer receives", func(t *testing.T) {
		broker := NewBroker()
		a := broker.Open()
		b := broker.Open()

		var got int
		b.Subscribe(func(string, []byte) { got++ })
		require.NoError(t, b.Close())
		require.NoError(t, a.Write(ctx, "k", []byte("v")))
		assert.Equal(t, 0, got)
	})
}
