package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lvalerom/samphub/sampvalue"
	"github.com/lvalerom/samphub/xmlrpc"
)

// Outbound is the adapter's "call(endpoint, method, args)" primitive: it
// encodes an XML-RPC request and POSTs it, used by the Standard Profile to
// push samp.client.* callbacks to clients that declared a callback URL.
// Mirrors the teacher's httpPut helper in endpoint/httprest.go.
type Outbound struct {
	client *http.Client
}

// NewOutbound returns an Outbound whose requests time out after timeout,
// the default connect/read bound spec §5 calls out for callback sends.
func NewOutbound(timeout time.Duration) *Outbound {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Outbound{client: &http.Client{Timeout: timeout}}
}

// Call POSTs method(args) to endpoint as an XML-RPC request and returns the
// decoded response params, or a RemoteFailure for a fault response, or a
// TransportFailure for anything below the RPC layer.
func (o *Outbound) Call(ctx context.Context, endpoint, method string, args []sampvalue.Value) ([]sampvalue.Value, error) {
	body, err := xmlrpc.EncodeMethodCall(method, args)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportFailure{Cause: err}
	}
	req.Header.Set("Content-Type", "text/xml")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, &TransportFailure{Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportFailure{Cause: err}
	}
	if resp.StatusCode >= 400 {
		return nil, &TransportFailure{Cause: fmt.Errorf("HTTP %d from %s", resp.StatusCode, endpoint)}
	}

	decoded, err := xmlrpc.DecodeMethodResponse(data)
	if err != nil {
		return nil, &TransportFailure{Cause: err}
	}
	if decoded.Fault != nil {
		return nil, &RemoteFailure{Code: decoded.Fault.Code, Message: decoded.Fault.Message}
	}
	return decoded.Params, nil
}
