package web

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/lvalerom/samphub/hub"
	"github.com/lvalerom/samphub/sampvalue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	if opts.Hub == nil {
		opts.Hub = hub.New(hub.Options{MaxClients: 16})
	}
	s := New(opts)
	require.NoError(t, s.Start(0))
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func postRPC(t *testing.T, url, origin, method string, params ...sampvalue.Value) (int, *sampvalue.Mapping) {
	t.Helper()
	raws := make([]json.RawMessage, len(params))
	for i, p := range params {
		text, err := sampvalue.ToJSON(p, false)
		require.NoError(t, err)
		raws[i] = json.RawMessage(text)
	}
	body, err := json.Marshal(map[string]any{
		"samp.methodName": method,
		"samp.params":     raws,
	})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	require.NoError(t, err)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil
	}
	v, err := sampvalue.FromJSON(string(data))
	require.NoError(t, err)
	m, ok := v.(*sampvalue.Mapping)
	require.True(t, ok)
	return resp.StatusCode, m
}

func TestWebProfile_RegisterRoundTrip(t *testing.T) {
	s := startTestServer(t, Options{})

	status, resp := postRPC(t, s.URL(), "https://example.org", "samp.hub.register")
	require.Equal(t, http.StatusOK, status)
	result, ok := resp.Get("samp.result")
	require.True(t, ok)
	reg := result.(*sampvalue.Mapping)
	key, _ := reg.GetString("samp.private-key")
	assert.True(t, strings.HasPrefix(key, KeyPrefix))

	status, resp = postRPC(t, s.URL(), "https://example.org", "samp.hub.unregister", key)
	require.Equal(t, http.StatusOK, status)
	_, ok = resp.Get("samp.errortxt")
	assert.False(t, ok)
}

func TestWebProfile_RegisterDeniedByClientAuthorizer(t *testing.T) {
	s := startTestServer(t, Options{ClientAuthorizer: denyAllAuthorizer{}})
	status, _ := postRPC(t, s.URL(), "https://evil.example", "samp.hub.register")
	assert.Equal(t, http.StatusForbidden, status)
}

func TestWebProfile_CORSHeadersEchoApprovedOrigin(t *testing.T) {
	s := startTestServer(t, Options{})
	req, err := http.NewRequest(http.MethodOptions, s.URL(), nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://example.org")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "https://example.org", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestWebProfile_PullCallbacksReceivesNotification(t *testing.T) {
	s := startTestServer(t, Options{})

	_, resp := postRPC(t, s.URL(), "https://example.org", "samp.hub.register")
	reg := mustResult(t, resp)
	key, _ := reg.GetString("samp.private-key")

	subs := sampvalue.NewMapping()
	subs.Set("samp.app.ping", sampvalue.NewMapping())
	_, subResp := postRPC(t, s.URL(), "https://example.org", "samp.hub.declareSubscriptions", key, subs)
	_, hasFault := subResp.Get("samp.errortxt")
	require.False(t, hasFault)

	// notifyAll never delivers to its own sender, so a second client sends.
	_, senderResp := postRPC(t, s.URL(), "https://example.org", "samp.hub.register")
	senderKey, _ := mustResult(t, senderResp).GetString("samp.private-key")

	msg := sampvalue.NewMapping()
	msg.Set("samp.mtype", "samp.app.ping")
	msg.Set("samp.params", sampvalue.NewMapping())
	_, notifyResp := postRPC(t, s.URL(), "https://example.org", "samp.hub.notifyAll", senderKey, msg)
	_, hasFault = notifyResp.Get("samp.errortxt")
	require.False(t, hasFault)

	// notifyAll's delivery to the queue happens on the hub's own delivery
	// goroutine; pullCallbacks blocks on the queue's condition variable
	// until that push arrives, so no extra synchronization is needed here.
	_, pullResp := postRPC(t, s.URL(), "https://example.org", "samp.hub.pullCallbacks", key, "5")
	result, ok := pullResp.Get("samp.result")
	require.True(t, ok)
	batch, ok := result.([]sampvalue.Value)
	require.True(t, ok)
	require.Len(t, batch, 1)
	entry, ok := batch[0].(*sampvalue.Mapping)
	require.True(t, ok)
	methodName, _ := entry.GetString("samp.methodName")
	assert.Equal(t, "samp.client.receiveNotification", methodName)
}

func mustResult(t *testing.T, m *sampvalue.Mapping) *sampvalue.Mapping {
	t.Helper()
	v, ok := m.Get("samp.result")
	require.True(t, ok)
	mm, ok := v.(*sampvalue.Mapping)
	require.True(t, ok)
	return mm
}

type denyAllAuthorizer struct{}

func (denyAllAuthorizer) Authorize(string) Decision { return Deny }
