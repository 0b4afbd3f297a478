package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lvalerom/samphub/sampvalue"
	"github.com/lvalerom/samphub/xmlrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutbound_Call_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := xmlrpc.EncodeMethodResponse([]sampvalue.Value{"delivered"})
		require.NoError(t, err)
		w.Header().Set("Content-Type", "text/xml")
		w.Write(body)
	}))
	defer srv.Close()

	o := NewOutbound(2 * time.Second)
	result, err := o.Call(context.Background(), srv.URL, "samp.client.receiveNotification", []sampvalue.Value{"secret", "hub"})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "delivered", result[0])
}

func TestOutbound_Call_Fault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(xmlrpc.EncodeFaultResponse(&xmlrpc.Fault{Code: xmlrpc.FaultCode, Message: "client gone"}))
	}))
	defer srv.Close()

	o := NewOutbound(2 * time.Second)
	_, err := o.Call(context.Background(), srv.URL, "samp.client.receiveNotification", nil)
	require.Error(t, err)
	var rf *RemoteFailure
	require.ErrorAs(t, err, &rf)
	assert.Equal(t, "client gone", rf.Message)
}

func TestOutbound_Call_ConnectionFailure(t *testing.T) {
	o := NewOutbound(200 * time.Millisecond)
	_, err := o.Call(context.Background(), "http://127.0.0.1:1", "samp.client.receiveNotification", nil)
	require.Error(t, err)
	var tf *TransportFailure
	assert.ErrorAs(t, err, &tf)
}
