package standard

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lvalerom/samphub/hub"
	"github.com/lvalerom/samphub/lockfile"
	"github.com/lvalerom/samphub/sampvalue"
	"github.com/lvalerom/samphub/xmlrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	h := hub.New(hub.Options{MaxClients: 16})
	path := filepath.Join(t.TempDir(), "lock")
	s := New(Options{Hub: h, LockfilePath: path})
	require.NoError(t, s.Start())
	t.Cleanup(func() {
		_ = s.Stop(context.Background())
	})
	return s, path
}

func call(t *testing.T, url, method string, params ...sampvalue.Value) *xmlrpc.MethodResponse {
	t.Helper()
	body, err := xmlrpc.EncodeMethodCall(method, params)
	require.NoError(t, err)
	resp, err := http.Post(url, "text/xml", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	mr, err := xmlrpc.DecodeMethodResponse(data)
	require.NoError(t, err)
	return mr
}

func TestStandardProfile_RegisterRoundTrip(t *testing.T) {
	s, path := startTestServer(t)

	f, err := os.Open(path)
	require.NoError(t, err)
	info, err := lockfile.Read(f)
	require.NoError(t, err)
	f.Close()
	require.NoError(t, info.Validate())
	assert.Equal(t, s.URL(), info.HubXMLRPCURL())

	resp := call(t, s.URL(), "samp.hub.register", info.Secret())
	require.Nil(t, resp.Fault)
	require.Len(t, resp.Params, 1)
	result := resp.Params[0].(*sampvalue.Mapping)
	key, ok := result.GetString("samp.private-key")
	require.True(t, ok)
	assert.NotEmpty(t, key)

	selfID, ok := result.GetString("samp.self-id")
	require.True(t, ok)
	assert.NotEmpty(t, selfID)

	unregResp := call(t, s.URL(), "samp.hub.unregister", key)
	assert.Nil(t, unregResp.Fault)
}

func TestStandardProfile_RegisterRejectsWrongSecret(t *testing.T) {
	s, _ := startTestServer(t)
	resp := call(t, s.URL(), "samp.hub.register", "not-the-secret")
	require.NotNil(t, resp.Fault)
}

func TestStandardProfile_LockfileRemovedOnStop(t *testing.T) {
	s, path := startTestServer(t)
	_, err := os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, s.Stop(context.Background()))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestStandardProfile_CallbackDeliveredToClientEndpoint(t *testing.T) {
	s, path := startTestServer(t)

	received := make(chan *xmlrpc.MethodCall, 1)
	clientSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		mc, err := xmlrpc.DecodeMethodCall(data)
		require.NoError(t, err)
		received <- mc
		enc, _ := xmlrpc.EncodeMethodResponse([]sampvalue.Value{""})
		w.Write(enc)
	}))
	defer clientSrv.Close()

	f, _ := os.Open(path)
	info, _ := lockfile.Read(f)
	f.Close()

	regResp := call(t, s.URL(), "samp.hub.register", info.Secret())
	key := regResp.Params[0].(*sampvalue.Mapping)
	privateKey, _ := key.GetString("samp.private-key")

	cbResp := call(t, s.URL(), "samp.hub.setXmlrpcCallback", privateKey, clientSrv.URL)
	require.Nil(t, cbResp.Fault)

	subs := sampvalue.NewMapping()
	subs.Set("samp.app.ping", sampvalue.NewMapping())
	subResp := call(t, s.URL(), "samp.hub.declareSubscriptions", privateKey, subs)
	require.Nil(t, subResp.Fault)

	// notifyAll never delivers to its own sender, so a second client sends.
	senderResp := call(t, s.URL(), "samp.hub.register", info.Secret())
	require.Nil(t, senderResp.Fault)
	senderKey, _ := senderResp.Params[0].(*sampvalue.Mapping).GetString("samp.private-key")

	msg := sampvalue.NewMapping()
	msg.Set("samp.mtype", "samp.app.ping")
	msg.Set("samp.params", sampvalue.NewMapping())
	notifyResp := call(t, s.URL(), "samp.hub.notifyAll", senderKey, msg)
	require.Nil(t, notifyResp.Fault)

	select {
	case mc := <-received:
		assert.Equal(t, "samp.client.receiveNotification", mc.MethodName)
	case <-time.After(2 * time.Second):
		t.Fatal("callback was not delivered")
	}
}
