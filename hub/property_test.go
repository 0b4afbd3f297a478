package hub

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/lvalerom/samphub/sampvalue"
)

// waitForCalls polls a fakeDeliverer until it has recorded at least n
// calls or a short deadline passes; used from property bodies where a
// *testing.T isn't in scope.
func waitForCalls(d *fakeDeliverer, n int) []deliveredCall {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		d.mu.Lock()
		got := len(d.calls)
		d.mu.Unlock()
		if got >= n {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]deliveredCall(nil), d.calls...)
}

// TestProperty_RegistryMatchesGetRegisteredClients checks invariant 1: for
// any interleaving of register/unregister across N clients, the live set
// each client sees via getRegisteredClients (plus itself) equals the
// hub's actual live set.
func TestProperty_RegistryMatchesGetRegisteredClients(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	const n = 6

	properties.Property("live registry matches getRegisteredClients from every live client", prop.ForAll(
		func(steps []uint8) bool {
			h := New(Options{})
			keys := make([]string, n)
			ids := make([]string, n)
			live := make([]bool, n)

			for _, step := range steps {
				i := int(step) % n
				if live[i] {
					_ = h.Unregister(keys[i])
					live[i] = false
					continue
				}
				res, err := h.Register(&fakeDeliverer{})
				if err != nil {
					continue
				}
				keys[i], ids[i] = res.PrivateKey, res.SelfID
				live[i] = true
			}

			wantLive := map[string]bool{}
			for i := range live {
				if live[i] {
					wantLive[ids[i]] = true
				}
			}

			for i := range live {
				if !live[i] {
					continue
				}
				got, err := h.GetRegisteredClients(keys[i])
				if err != nil {
					return false
				}
				gotSet := map[string]bool{ids[i]: true} // excludes self on the wire
				for _, id := range got {
					gotSet[id] = true
				}
				if len(gotSet) != len(wantLive) {
					return false
				}
				for id := range wantLive {
					if !gotSet[id] {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOfN(40, gen.UInt8Range(0, n-1)),
	))

	properties.TestingRun(t)
}

// TestProperty_CallAlwaysYieldsExactlyOneResponse checks invariant 3: a
// successful call yields exactly one receiveResponse, whether the
// recipient genuinely replies or unregisters first (a synthetic error).
func TestProperty_CallAlwaysYieldsExactlyOneResponse(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	properties.Property("every successful call yields exactly one response", prop.ForAll(
		func(recipientUnregistersFirst bool) bool {
			h := New(Options{})
			senderD := &fakeDeliverer{}
			senderRes, err := h.Register(senderD)
			if err != nil {
				return false
			}
			recipientD := &fakeDeliverer{}
			recipientRes, err := h.Register(recipientD)
			if err != nil {
				return false
			}
			subscribeTestPing(h, recipientRes.PrivateKey, recipientD)

			msgID, err := h.Call(senderRes.PrivateKey, recipientRes.SelfID, "tagX", pingMessage())
			if err != nil {
				return false
			}

			if recipientUnregistersFirst {
				if err := h.Unregister(recipientRes.PrivateKey); err != nil {
					return false
				}
			} else {
				response := sampvalue.NewMapping()
				response.Set("samp.status", "samp.ok")
				if err := h.Reply(recipientRes.PrivateKey, msgID, response); err != nil {
					return false
				}
			}

			calls := waitForCalls(senderD, 1)
			if len(calls) != 1 {
				return false
			}
			return calls[0].method == "receiveResponse"
		},
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// TestProperty_PerPairDeliveryOrderIsPreserved checks invariant 4: for a
// fixed pair (A, B), B observes A's notify() submissions in submission
// order, regardless of how many other pairs are delivering concurrently.
func TestProperty_PerPairDeliveryOrderIsPreserved(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("per-pair notify order matches submission order", prop.ForAll(
		func(n int) bool {
			h := New(Options{})
			aRes, err := h.Register(&fakeDeliverer{})
			if err != nil {
				return false
			}
			bD := &fakeDeliverer{}
			bRes, err := h.Register(bD)
			if err != nil {
				return false
			}
			subscribeTestPing(h, bRes.PrivateKey, bD)

			// A third client interleaves notifications to B concurrently,
			// so ordering must survive contention on the same recipient.
			cRes, err := h.Register(&fakeDeliverer{})
			if err != nil {
				return false
			}

			for i := 0; i < n; i++ {
				msg := pingMessage()
				msg.Set("samp.params", seqParams(i))
				if err := h.Notify(aRes.PrivateKey, bRes.SelfID, msg); err != nil {
					return false
				}
				if err := h.Notify(cRes.PrivateKey, bRes.SelfID, pingMessage()); err != nil {
					return false
				}
			}

			delivered := waitForCalls(bD, 2*n)
			seen := -1
			for _, call := range delivered {
				if call.method != "receiveNotification" {
					continue
				}
				if len(call.args) < 2 {
					continue
				}
				sender, _ := call.args[0].(string)
				if sender != aRes.SelfID {
					continue
				}
				msg, ok := call.args[1].(*sampvalue.Mapping)
				if !ok {
					continue
				}
				paramsVal, ok := msg.Get("samp.params")
				if !ok {
					continue
				}
				params, ok := paramsVal.(*sampvalue.Mapping)
				if !ok {
					continue
				}
				seqStr, _ := params.GetString("seq")
				seq, err := sampvalue.DecodeInt(seqStr)
				if err != nil {
					return false
				}
				if int(seq) <= seen {
					return false
				}
				seen = int(seq)
			}
			return true
		},
		gen.IntRange(0, 8),
	))

	properties.TestingRun(t)
}

func subscribeTestPing(h *Hub, key string, d Deliverer) {
	_ = h.DeclareCallback(key, d)
	subs := sampvalue.NewMapping()
	subs.Set("test.ping", sampvalue.NewMapping())
	_ = h.DeclareSubscriptions(key, subs)
}

func seqParams(i int) *sampvalue.Mapping {
	p := sampvalue.NewMapping()
	p.Set("seq", sampvalue.EncodeInt(int64(i)))
	return p
}
