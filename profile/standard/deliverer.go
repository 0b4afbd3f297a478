package standard

import (
	"context"

	"github.com/lvalerom/samphub/sampvalue"
	"github.com/lvalerom/samphub/transport"
)

// standardDeliverer pushes a callback to a client's declared callback URL
// over XML-RPC, prefixing the method name with samp.client. per spec §6's
// "outbound" method namespace.
type standardDeliverer struct {
	outbound *transport.Outbound
	url      string
}

func (d *standardDeliverer) Deliver(method string, args []sampvalue.Value) error {
	_, err := d.outbound.Call(context.Background(), d.url, "samp.client."+method, args)
	return err
}
