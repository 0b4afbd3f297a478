package web

import "github.com/lvalerom/samphub/sampvalue"

// webDeliverer stands in for the Standard Profile's outbound POST: rather
// than reaching out to a client-declared URL, it enqueues the callback on
// the client's pullQueue for pullCallbacks to later drain. Deliver never
// fails — queue overflow silently evicts the oldest entry and marks the
// client lagging rather than erroring, since there is no caller to report
// a delivery failure back to.
type webDeliverer struct {
	queue *pullQueue
}

func (d *webDeliverer) Deliver(method string, args []sampvalue.Value) error {
	d.queue.push(method, args)
	return nil
}
