package hub

import (
	"context"
	"time"

	"github.com/lvalerom/samphub/sampvalue"
)

// callEntry is a call-tracking entry (spec §3): msg-id, caller-supplied
// tag, the parties involved, and — for callAndWait only — the channel the
// hub parks the caller on rather than delivering receiveResponse over the
// wire.
type callEntry struct {
	msgID       string
	tag         string
	senderID    string
	recipientID string
	waiter      chan *sampvalue.Mapping
}

func messageMType(message *sampvalue.Mapping) string {
	mtype, _ := message.GetString("samp.mtype")
	return mtype
}

// Notify is fire-and-forget delivery to a single recipient.
func (h *Hub) Notify(privateKey, recipientID string, message *sampvalue.Mapping) error {
	if err := sampvalue.Validate(message); err != nil {
		return err
	}
	mtype := messageMType(message)

	h.mu.RLock()
	sender, err := h.lookupByKey(privateKey)
	if err != nil {
		h.mu.RUnlock()
		return err
	}
	recipient, ok := h.clients[recipientID]
	if !ok {
		h.mu.RUnlock()
		return &UnknownTarget{TargetID: recipientID}
	}
	if !h.subs.isSubscribed(recipientID, mtype) {
		h.mu.RUnlock()
		return &NotSubscribed{TargetID: recipientID, MType: mtype}
	}
	if !recipient.hasCallback {
		h.mu.RUnlock()
		return &NotSubscribed{TargetID: recipientID, MType: mtype}
	}
	deliverer := recipient.deliverer
	senderID := sender.id
	h.mu.RUnlock()

	h.deliverAsync(deliverer, "receiveNotification", []sampvalue.Value{senderID, message}, senderID, recipientID, mtype)
	h.notifyObservers(func(o Observer) { o.OnMessage("notify", senderID, recipientID, mtype) })
	return nil
}

// NotifyAll expands to every subscribed, callback-bearing client except
// the sender and returns the id list before deliveries complete.
func (h *Hub) NotifyAll(privateKey string, message *sampvalue.Mapping) ([]string, error) {
	if err := sampvalue.Validate(message); err != nil {
		return nil, err
	}
	mtype := messageMType(message)

	h.mu.RLock()
	sender, err := h.lookupByKey(privateKey)
	if err != nil {
		h.mu.RUnlock()
		return nil, err
	}
	senderID := sender.id

	type target struct {
		id string
		d  Deliverer
	}
	var targets []target
	for id := range h.subs.match(mtype) {
		if id == senderID {
			continue
		}
		rec, ok := h.clients[id]
		if !ok || !rec.hasCallback {
			continue
		}
		targets = append(targets, target{id, rec.deliverer})
	}
	h.mu.RUnlock()

	notified := make([]string, 0, len(targets))
	for _, t := range targets {
		h.deliverAsync(t.d, "receiveNotification", []sampvalue.Value{senderID, message}, senderID, t.id, mtype)
		notified = append(notified, t.id)
	}
	h.notifyObservers(func(o Observer) { o.OnMessage("notifyAll", senderID, "", mtype) })
	return notified, nil
}

// Call is synchronous from the recipient's viewpoint: the hub mints a
// msg-id, records a tracking entry, posts receiveCall, and returns the
// msg-id without waiting for a reply.
func (h *Hub) Call(privateKey, recipientID, tag string, message *sampvalue.Mapping) (string, error) {
	return h.call(privateKey, recipientID, tag, message, nil)
}

func (h *Hub) call(privateKey, recipientID, tag string, message *sampvalue.Mapping, waiter chan *sampvalue.Mapping) (string, error) {
	if err := sampvalue.Validate(message); err != nil {
		return "", err
	}
	mtype := messageMType(message)

	h.mu.RLock()
	sender, err := h.lookupByKey(privateKey)
	if err != nil {
		h.mu.RUnlock()
		return "", err
	}
	recipient, ok := h.clients[recipientID]
	if !ok {
		h.mu.RUnlock()
		return "", &UnknownTarget{TargetID: recipientID}
	}
	if !h.subs.isSubscribed(recipientID, mtype) {
		h.mu.RUnlock()
		return "", &NotSubscribed{TargetID: recipientID, MType: mtype}
	}
	if !recipient.hasCallback {
		h.mu.RUnlock()
		return "", &NotSubscribed{TargetID: recipientID, MType: mtype}
	}
	deliverer := recipient.deliverer
	senderID := sender.id
	h.mu.RUnlock()

	msgID := newMsgID()
	entry := &callEntry{msgID: msgID, tag: tag, senderID: senderID, recipientID: recipientID, waiter: waiter}
	h.callMu.Lock()
	h.calls[msgID] = entry
	h.callMu.Unlock()

	h.deliverAsync(deliverer, "receiveCall", []sampvalue.Value{senderID, msgID, message}, senderID, recipientID, mtype)
	h.notifyObservers(func(o Observer) { o.OnMessage("call", senderID, recipientID, mtype) })
	return msgID, nil
}

// CallAll expands a call to every subscribed, callback-bearing client
// except the sender, returning a mapping of recipient id to minted msg-id.
func (h *Hub) CallAll(privateKey, tag string, message *sampvalue.Mapping) (*sampvalue.Mapping, error) {
	if err := sampvalue.Validate(message); err != nil {
		return nil, err
	}
	mtype := messageMType(message)

	h.mu.RLock()
	sender, err := h.lookupByKey(privateKey)
	if err != nil {
		h.mu.RUnlock()
		return nil, err
	}
	senderID := sender.id

	type target struct {
		id string
		d  Deliverer
	}
	var targets []target
	for id := range h.subs.match(mtype) {
		if id == senderID {
			continue
		}
		rec, ok := h.clients[id]
		if !ok || !rec.hasCallback {
			continue
		}
		targets = append(targets, target{id, rec.deliverer})
	}
	h.mu.RUnlock()

	result := sampvalue.NewMapping()
	for _, t := range targets {
		msgID := newMsgID()
		entry := &callEntry{msgID: msgID, tag: tag, senderID: senderID, recipientID: t.id}
		h.callMu.Lock()
		h.calls[msgID] = entry
		h.callMu.Unlock()

		h.deliverAsync(t.d, "receiveCall", []sampvalue.Value{senderID, msgID, message}, senderID, t.id, mtype)
		result.Set(t.id, msgID)
	}
	h.notifyObservers(func(o Observer) { o.OnMessage("callAll", senderID, "", mtype) })
	return result, nil
}

// CallAndWait is call() followed by a bounded wait on the matching
// receiveResponse, parking the caller on a one-shot rendezvous channel
// rather than an outbound callback (spec §4.4). On timeout it synthesizes
// a samp.error response and deletes the tracking entry; any later real
// reply finds no entry and is silently dropped.
func (h *Hub) CallAndWait(ctx context.Context, privateKey, recipientID string, message *sampvalue.Mapping, timeout time.Duration) (*sampvalue.Mapping, error) {
	waiter := make(chan *sampvalue.Mapping, 1)
	msgID, err := h.call(privateKey, recipientID, "", message, waiter)
	if err != nil {
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case response := <-waiter:
		return response, nil
	case <-timer.C:
		h.callMu.Lock()
		delete(h.calls, msgID)
		h.callMu.Unlock()
		return syntheticErrorResponse(&Timeout{MsgID: msgID}), nil
	case <-ctx.Done():
		h.callMu.Lock()
		delete(h.calls, msgID)
		h.callMu.Unlock()
		return nil, ctx.Err()
	}
}

// Reply correlates response with its tracking entry and delivers it back
// to the original sender, or resolves a parked callAndWait waiter.
func (h *Hub) Reply(privateKey, msgID string, response *sampvalue.Mapping) error {
	if err := sampvalue.Validate(response); err != nil {
		return err
	}

	h.mu.RLock()
	rec, err := h.lookupByKey(privateKey)
	h.mu.RUnlock()
	if err != nil {
		return err
	}

	h.callMu.Lock()
	entry, ok := h.calls[msgID]
	if !ok || entry.recipientID != rec.id {
		h.callMu.Unlock()
		return &UnknownMsgId{MsgID: msgID}
	}
	delete(h.calls, msgID)
	h.callMu.Unlock()

	if entry.waiter != nil {
		entry.waiter <- response
		return nil
	}

	h.mu.RLock()
	sender, ok := h.clients[entry.senderID]
	h.mu.RUnlock()
	if !ok {
		// Sender unregistered while the call was outstanding; drop.
		return nil
	}
	h.deliverAsync(sender.deliverer, "receiveResponse", []sampvalue.Value{rec.id, entry.tag, response}, rec.id, entry.senderID, "")
	return nil
}

// abandonCallsFor deletes every tracking entry where clientID is sender or
// recipient. Where it was the recipient, it synthesizes a samp.error
// response back to a still-live sender. Where it was the sender of a
// callAndWait (spec §5 Cancellation), its parked waiter is woken immediately
// with the synthetic error rather than left to its own timeout.
func (h *Hub) abandonCallsFor(clientID string) {
	h.callMu.Lock()
	var affected []*callEntry
	for msgID, entry := range h.calls {
		if entry.senderID == clientID || entry.recipientID == clientID {
			affected = append(affected, entry)
			delete(h.calls, msgID)
		}
	}
	h.callMu.Unlock()

	response := syntheticErrorResponse(&UnknownTarget{TargetID: clientID})
	for _, entry := range affected {
		if entry.senderID == clientID && entry.waiter != nil {
			entry.waiter <- response
			continue
		}
		if entry.recipientID != clientID {
			continue
		}
		if entry.waiter != nil {
			entry.waiter <- response
			continue
		}
		h.mu.RLock()
		sender, ok := h.clients[entry.senderID]
		h.mu.RUnlock()
		if !ok {
			continue
		}
		h.deliverAsync(sender.deliverer, "receiveResponse", []sampvalue.Value{clientID, entry.tag, response}, clientID, entry.senderID, "")
	}
}

// syntheticErrorResponse builds the { samp.status: "samp.error", samp.error:
// {...} } payload spec §4.4/§7 call for on timeout and abandonment.
func syntheticErrorResponse(cause error) *sampvalue.Mapping {
	m := sampvalue.NewMapping()
	m.Set("samp.status", "samp.error")
	m.Set("samp.error", func() sampvalue.Value {
		errMapping := sampvalue.NewMapping()
		errMapping.Set("samp.errortxt", cause.Error())
		if k, ok := cause.(interface{ Kind() string }); ok {
			errMapping.Set("samp.code", k.Kind())
		} else {
			errMapping.Set("samp.code", "samp.error")
		}
		return errMapping
	}())
	return m
}

func (h *Hub) notifyObservers(apply func(Observer)) {
	h.mu.RLock()
	observers := append([]Observer(nil), h.observers...)
	h.mu.RUnlock()
	for _, o := range observers {
		apply(o)
	}
}
