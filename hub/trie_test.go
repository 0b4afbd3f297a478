package hub

import (
	"testing"

	"github.com/lvalerom/samphub/sampvalue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionIndex_ExactMatch(t *testing.T) {
	idx := newSubscriptionIndex()
	cfg := sampvalue.NewMapping()
	idx.subscribe("c1", "test.ping", cfg)

	matches := idx.match("test.ping")
	require.Contains(t, matches, "c1")
	assert.Same(t, cfg, matches["c1"])
}

func TestSubscriptionIndex_WildcardMatch(t *testing.T) {
	idx := newSubscriptionIndex()
	cfg := sampvalue.NewMapping()
	idx.subscribe("c1", "test.*", cfg)

	matches := idx.match("test.a.b")
	assert.Contains(t, matches, "c1")

	_, ok := idx.match("other.a")["c1"]
	assert.False(t, ok)
}

func TestSubscriptionIndex_GlobalWildcard(t *testing.T) {
	idx := newSubscriptionIndex()
	idx.subscribe("c1", "*", sampvalue.NewMapping())

	matches := idx.match("anything.at.all")
	assert.Contains(t, matches, "c1")
}

func TestSubscriptionIndex_MostSpecificWins(t *testing.T) {
	idx := newSubscriptionIndex()
	general := sampvalue.NewMapping()
	general.Set("scope", "general")
	specific := sampvalue.NewMapping()
	specific.Set("scope", "specific")

	idx.subscribe("c1", "test.*", general)
	idx.subscribe("c1", "test.ping", specific)

	matches := idx.match("test.ping")
	scope, _ := matches["c1"].GetString("scope")
	assert.Equal(t, "specific", scope)
}

func TestSubscriptionIndex_UnsubscribeAll(t *testing.T) {
	idx := newSubscriptionIndex()
	idx.subscribe("c1", "test.ping", sampvalue.NewMapping())
	idx.subscribe("c1", "test.pong", sampvalue.NewMapping())

	idx.unsubscribeAll("c1", []string{"test.ping", "test.pong"})

	assert.False(t, idx.isSubscribed("c1", "test.ping"))
	assert.False(t, idx.isSubscribed("c1", "test.pong"))
}

func TestSubscriptionIndex_MultipleClientsIndependent(t *testing.T) {
	idx := newSubscriptionIndex()
	idx.subscribe("c1", "test.ping", sampvalue.NewMapping())
	idx.subscribe("c2", "test.*", sampvalue.NewMapping())

	matches := idx.match("test.ping")
	assert.Contains(t, matches, "c1")
	assert.Contains(t, matches, "c2")

	matches = idx.match("test.other")
	assert.NotContains(t, matches, "c1")
	assert.Contains(t, matches, "c2")
}
