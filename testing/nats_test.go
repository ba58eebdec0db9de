package testing

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"
)

func TestStartEmbeddedNATS(t *testing.T) {
	ns, nc := StartEmbeddedNATS(t)

	require.True(t, ns.JetStreamEnabled())
	require.True(t, nc.IsConnected())

	// JetStream KV must be usable out of the box.
	js, err := jetstream.New(nc)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	kv, err := js.CreateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: "smoke"})
	require.NoError(t, err)

	_, err = kv.Create(ctx, "key", []byte("value"))
	require.NoError(t, err)

	entry, err := kv.Get(ctx, "key")
	require.NoError(t, err)
	require.Equal(t, "value", string(entry.Value()))
}
