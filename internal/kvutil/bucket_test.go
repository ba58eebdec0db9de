package kvutil

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"

	disptesting "github.com/corvana/dispatch/testing"
)

func TestEnsureBucket(t *testing.T) {
	_, nc := disptesting.StartEmbeddedNATS(t)
	js, err := jetstream.New(nc)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg := jetstream.KeyValueConfig{Bucket: "dispatch-test-bucket"}

	kv, err := EnsureBucket(ctx, js, cfg, 3)
	require.NoError(t, err)
	require.NotNil(t, kv)

	// Second call opens the existing bucket instead of failing.
	again, err := EnsureBucket(ctx, js, cfg, 3)
	require.NoError(t, err)
	require.NotNil(t, again)
}

func TestSanitizeKey(t *testing.T) {
	require.Equal(t, "issue-42", SanitizeKey("issue-42"))
	require.Equal(t, "a/b.c_d=e", SanitizeKey("a/b.c_d=e"))
	require.Equal(t, "item_7_", SanitizeKey("item 7!"))
}
