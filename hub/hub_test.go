package hub

import (
	"sync"
	"testing"
	"time"

	"github.com/lvalerom/samphub/sampvalue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDeliverer records every callback pushed to it; safe for concurrent
// delivery since the hub always calls Deliver from its own goroutine.
type fakeDeliverer struct {
	mu    sync.Mutex
	calls []deliveredCall
}

type deliveredCall struct {
	method string
	args   []sampvalue.Value
}

func (f *fakeDeliverer) Deliver(method string, args []sampvalue.Value) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, deliveredCall{method, args})
	return nil
}

func (f *fakeDeliverer) wait(t *testing.T, n int) []deliveredCall {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		f.mu.Lock()
		got := len(f.calls)
		f.mu.Unlock()
		if got >= n {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]deliveredCall(nil), f.calls...)
}

func registerClient(t *testing.T, h *Hub) (string, string, *fakeDeliverer) {
	t.Helper()
	d := &fakeDeliverer{}
	res, err := h.Register(d)
	require.NoError(t, err)
	return res.SelfID, res.PrivateKey, d
}

func TestRegister_AllocatesDistinctIDsAndKeys(t *testing.T) {
	h := New(Options{})
	id1, key1, _ := registerClient(t, h)
	id2, key2, _ := registerClient(t, h)

	assert.NotEqual(t, id1, id2)
	assert.NotEqual(t, key1, key2)
}

func TestRegister_OverloadedAtLimit(t *testing.T) {
	h := New(Options{MaxClients: 1})
	_, _, _ = registerClient(t, h)

	_, err := h.Register(&fakeDeliverer{})
	require.Error(t, err)
	var overloaded *Overloaded
	require.ErrorAs(t, err, &overloaded)
}

func TestUnregister_RemovesClientAndRejectsFurtherCalls(t *testing.T) {
	h := New(Options{})
	_, key, _ := registerClient(t, h)

	require.NoError(t, h.Unregister(key))

	_, err := h.GetRegisteredClients(key)
	require.Error(t, err)
	var unknown *UnknownClient
	require.ErrorAs(t, err, &unknown)
}

func TestGetRegisteredClients_ExcludesSelfAndIncludesOthers(t *testing.T) {
	h := New(Options{})
	id1, key1, _ := registerClient(t, h)
	id2, _, _ := registerClient(t, h)

	clients, err := h.GetRegisteredClients(key1)
	require.NoError(t, err)
	assert.NotContains(t, clients, id1)
	assert.Contains(t, clients, id2)
}

func TestDeclareMetadata_RoundTrip(t *testing.T) {
	h := New(Options{})
	id, key, _ := registerClient(t, h)

	meta := sampvalue.NewMapping()
	meta.Set("samp.name", "testclient")
	require.NoError(t, h.DeclareMetadata(key, meta))

	got, err := h.GetMetadata(key, id)
	require.NoError(t, err)
	name, _ := got.GetString("samp.name")
	assert.Equal(t, "testclient", name)
}

func TestDeclareSubscriptions_MakesClientDiscoverable(t *testing.T) {
	h := New(Options{})
	id, key, d := registerClient(t, h)
	require.NoError(t, h.DeclareCallback(key, d))

	subs := sampvalue.NewMapping()
	subs.Set("test.ping", sampvalue.NewMapping())
	require.NoError(t, h.DeclareSubscriptions(key, subs))

	subscribed, err := h.GetSubscribedClients(key, "test.ping")
	require.NoError(t, err)
	assert.Contains(t, subscribed.Keys(), id)
}

func TestGetSubscribedClients_ExcludesClientsWithoutCallback(t *testing.T) {
	h := New(Options{})
	_, key, _ := registerClient(t, h)
	// no DeclareCallback call
	subs := sampvalue.NewMapping()
	subs.Set("test.ping", sampvalue.NewMapping())
	require.NoError(t, h.DeclareSubscriptions(key, subs))

	subscribed, err := h.GetSubscribedClients(key, "test.ping")
	require.NoError(t, err)
	assert.Equal(t, 0, subscribed.Len())
}

func TestLifecycleBroadcast_DeliversRegisterEventToSubscriber(t *testing.T) {
	h := New(Options{})
	_, key1, d1 := registerClient(t, h)
	require.NoError(t, h.DeclareCallback(key1, d1))
	subs := sampvalue.NewMapping()
	subs.Set("samp.hub.event.register", sampvalue.NewMapping())
	require.NoError(t, h.DeclareSubscriptions(key1, subs))

	_, _, _ = registerClient(t, h)

	calls := d1.wait(t, 1)
	require.Len(t, calls, 1)
	assert.Equal(t, "receiveNotification", calls[0].method)
}
