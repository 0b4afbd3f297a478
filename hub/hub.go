// Package hub implements the SAMP hub service (C4): client registry,
// MType subscription index, message routing, call tracking, and lifecycle
// broadcasts. It is the direct successor of the teacher's channel-driven
// interchange.Hub, generalized from arbitrary pub/sub topics to SAMP's
// fixed register/notify/call contract and reworked to use an explicit
// mutex instead of a single dispatch goroutine, since C4's concurrency
// model (spec §5) calls for short, lock-held registry mutations with long
// operations performed outside the lock — a goroutine-per-mutation channel
// loop would serialize exactly the outbound sends that must not be
// serialized.
package hub

import (
	"log/slog"
	"sync"

	"github.com/lvalerom/samphub/sampvalue"
)

// HubSelfID is the hub's own reserved public id (spec §3: "the hub itself
// owns a reserved public id... that may appear as a sender but never
// receives directly").
const HubSelfID = "hub"

// Deliverer pushes a callback invocation to one client. Standard Profile
// implementations POST immediately over XML-RPC; Web Profile
// implementations enqueue for a later pullCallbacks. Deliver is expected
// to do its own logging on failure; the hub's only obligation on a
// non-nil error is the "log and swallow" policy of spec §4.4.
type Deliverer interface {
	Deliver(method string, args []sampvalue.Value) error
}

// Observer receives every registry mutation and routed message,
// independent of SAMP subscriptions. This is the pluggable-observer
// replacement spec §9 calls for in place of the source's inheritance
// hierarchy between basic/gui/message-tracking hub variants.
type Observer interface {
	OnRegister(clientID string)
	OnUnregister(clientID string)
	OnMetadata(clientID string)
	OnSubscriptions(clientID string)
	OnMessage(kind, senderID, recipientID, mtype string)
	OnShutdown()
}

type clientRecord struct {
	id            string
	privateKey    string
	metadata      *sampvalue.Mapping
	subscriptions *sampvalue.Mapping // pattern -> config, in declared order
	deliverer     Deliverer
	hasCallback   bool
}

// Hub is the registry and router. Zero value is not usable; construct with
// New.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*clientRecord // public id -> record
	byKey    map[string]string        // private key -> public id
	subs     *subscriptionIndex
	ids      *idAllocator
	observers []Observer

	callMu sync.Mutex
	calls  map[string]*callEntry // msg-id -> tracking entry

	maxClients int
	logger     *slog.Logger

	callbackConcurrency int
	semMu               sync.Mutex
	deliverySems        map[string]chan struct{} // recipient id -> bounded slot pool

	pairMu    sync.Mutex
	pairTails map[pairKey]chan struct{} // (sender,recipient) -> prior delivery's completion signal

	shutdownMu sync.Mutex
	shutDown   bool
}

// pairKey identifies one direction of traffic between two clients, the
// unit spec §8 invariant 4's per-pair ordering guarantee is scoped to.
type pairKey struct {
	senderID    string
	recipientID string
}

// Options configures a Hub at construction time.
type Options struct {
	// MaxClients bounds concurrent registrations (spec §5 default 4096).
	MaxClients int
	// CallbackConcurrency bounds simultaneous outbound deliveries to any
	// one recipient (spec §5 default 16; further sends queue behind it).
	CallbackConcurrency int
	Logger               *slog.Logger
}

// New constructs an empty Hub.
func New(opts Options) *Hub {
	maxClients := opts.MaxClients
	if maxClients <= 0 {
		maxClients = 4096
	}
	callbackConcurrency := opts.CallbackConcurrency
	if callbackConcurrency <= 0 {
		callbackConcurrency = 16
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:             make(map[string]*clientRecord),
		byKey:               make(map[string]string),
		subs:                newSubscriptionIndex(),
		ids:                 newIDAllocator(),
		calls:               make(map[string]*callEntry),
		maxClients:          maxClients,
		callbackConcurrency: callbackConcurrency,
		deliverySems:        make(map[string]chan struct{}),
		pairTails:           make(map[pairKey]chan struct{}),
		logger:              logger,
	}
}

// AddObserver registers o to receive future registry/message events. Not
// safe to call concurrently with hub activity; intended for wiring at
// construction time.
func (h *Hub) AddObserver(o Observer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.observers = append(h.observers, o)
}

func (h *Hub) isShutDown() bool {
	h.shutdownMu.Lock()
	defer h.shutdownMu.Unlock()
	return h.shutDown
}

// RegisterResult is returned to a newly registered client.
type RegisterResult struct {
	HubID      string
	SelfID     string
	PrivateKey string
}

// Register admits a new client. Identity evidence (secret match, origin
// approval) is the calling Profile's responsibility; by the time Register
// is called the client is already authorized to join.
func (h *Hub) Register(deliverer Deliverer) (*RegisterResult, error) {
	if h.isShutDown() {
		return nil, &HubShutdown{}
	}

	h.mu.Lock()
	if len(h.clients) >= h.maxClients {
		h.mu.Unlock()
		return nil, &Overloaded{Limit: h.maxClients}
	}
	key, err := newPrivateKey()
	if err != nil {
		h.mu.Unlock()
		return nil, err
	}
	id := h.ids.nextClientID()
	rec := &clientRecord{
		id:            id,
		privateKey:    key,
		metadata:      sampvalue.NewMapping(),
		subscriptions: sampvalue.NewMapping(),
		deliverer:     deliverer,
	}
	h.clients[id] = rec
	h.byKey[key] = id
	observers := append([]Observer(nil), h.observers...)
	h.mu.Unlock()

	for _, o := range observers {
		o.OnRegister(id)
	}
	h.broadcastLifecycle("samp.hub.event.register", func() *sampvalue.Mapping {
		m := sampvalue.NewMapping()
		m.Set("id", id)
		return m
	}())

	return &RegisterResult{HubID: HubSelfID, SelfID: id, PrivateKey: key}, nil
}

// lookupByKey resolves a private key to its client record. Caller must
// hold at least a read lock.
func (h *Hub) lookupByKey(privateKey string) (*clientRecord, error) {
	id, ok := h.byKey[privateKey]
	if !ok {
		return nil, &UnknownClient{}
	}
	return h.clients[id], nil
}

// Unregister removes the client owning privateKey, abandons its
// call-tracking entries, and broadcasts the unregister lifecycle event.
func (h *Hub) Unregister(privateKey string) error {
	h.mu.Lock()
	rec, err := h.lookupByKey(privateKey)
	if err != nil {
		h.mu.Unlock()
		return err
	}
	id := rec.id
	delete(h.clients, id)
	delete(h.byKey, privateKey)
	patterns := rec.subscriptions.Keys()
	h.subs.unsubscribeAll(id, patterns)
	observers := append([]Observer(nil), h.observers...)
	h.mu.Unlock()

	h.abandonCallsFor(id)
	h.dropDeliverySem(id)
	h.dropPairTailsFor(id)

	for _, o := range observers {
		o.OnUnregister(id)
	}
	h.broadcastLifecycle("samp.hub.event.unregister", func() *sampvalue.Mapping {
		m := sampvalue.NewMapping()
		m.Set("id", id)
		return m
	}())
	return nil
}

// DeclareMetadata replaces the metadata mapping for the client owning
// privateKey.
func (h *Hub) DeclareMetadata(privateKey string, metadata *sampvalue.Mapping) error {
	if err := sampvalue.Validate(metadata); err != nil {
		return err
	}
	h.mu.Lock()
	rec, err := h.lookupByKey(privateKey)
	if err != nil {
		h.mu.Unlock()
		return err
	}
	rec.metadata = metadata
	id := rec.id
	observers := append([]Observer(nil), h.observers...)
	h.mu.Unlock()

	for _, o := range observers {
		o.OnMetadata(id)
	}
	h.broadcastLifecycle("samp.hub.event.metadata", func() *sampvalue.Mapping {
		m := sampvalue.NewMapping()
		m.Set("id", id)
		m.Set("metadata", metadata)
		return m
	}())
	return nil
}

// GetMetadata returns the metadata mapping declared by targetID.
func (h *Hub) GetMetadata(privateKey, targetID string) (*sampvalue.Mapping, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, err := h.lookupByKey(privateKey); err != nil {
		return nil, err
	}
	target, ok := h.clients[targetID]
	if !ok {
		return nil, &UnknownTarget{TargetID: targetID}
	}
	return target.metadata, nil
}

// DeclareSubscriptions replaces the subscription set for the client owning
// privateKey. subs maps MType pattern -> config mapping.
func (h *Hub) DeclareSubscriptions(privateKey string, subs *sampvalue.Mapping) error {
	if err := sampvalue.Validate(subs); err != nil {
		return err
	}
	h.mu.Lock()
	rec, err := h.lookupByKey(privateKey)
	if err != nil {
		h.mu.Unlock()
		return err
	}
	id := rec.id
	h.subs.unsubscribeAll(id, rec.subscriptions.Keys())
	for _, pattern := range subs.Keys() {
		configVal, _ := subs.Get(pattern)
		config, _ := configVal.(*sampvalue.Mapping)
		if config == nil {
			config = sampvalue.NewMapping()
		}
		h.subs.subscribe(id, pattern, config)
	}
	rec.subscriptions = subs
	observers := append([]Observer(nil), h.observers...)
	h.mu.Unlock()

	for _, o := range observers {
		o.OnSubscriptions(id)
	}
	h.broadcastLifecycle("samp.hub.event.subscriptions", func() *sampvalue.Mapping {
		m := sampvalue.NewMapping()
		m.Set("id", id)
		m.Set("subscriptions", subs)
		return m
	}())
	return nil
}

// GetSubscriptions returns the subscription mapping declared by targetID.
func (h *Hub) GetSubscriptions(privateKey, targetID string) (*sampvalue.Mapping, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, err := h.lookupByKey(privateKey); err != nil {
		return nil, err
	}
	target, ok := h.clients[targetID]
	if !ok {
		return nil, &UnknownTarget{TargetID: targetID}
	}
	return target.subscriptions, nil
}

// DeclareCallback installs the outbound deliverer for the client owning
// privateKey, replacing any prior one (spec §4.4 state machine: "a client
// may declare callbacks 0 or 1 times; re-declaration replaces").
func (h *Hub) DeclareCallback(privateKey string, deliverer Deliverer) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec, err := h.lookupByKey(privateKey)
	if err != nil {
		return err
	}
	rec.deliverer = deliverer
	rec.hasCallback = true
	return nil
}

// GetRegisteredClients returns every live public id except the caller and
// the hub itself.
func (h *Hub) GetRegisteredClients(privateKey string) ([]string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	self, err := h.lookupByKey(privateKey)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		if id == self.id {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// GetSubscribedClients returns, for the given MType, every client eligible
// to receive it mapped to the most specific config it is subscribed
// under. Only clients with a declared callback are eligible (spec §4.4
// state machine).
func (h *Hub) GetSubscribedClients(privateKey, mtype string) (*sampvalue.Mapping, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, err := h.lookupByKey(privateKey); err != nil {
		return nil, err
	}
	result := sampvalue.NewMapping()
	for clientID, config := range h.subs.match(mtype) {
		rec, ok := h.clients[clientID]
		if !ok || !rec.hasCallback {
			continue
		}
		result.Set(clientID, config)
	}
	return result, nil
}

// broadcastLifecycle delivers a samp.hub.event.* notification to every
// client subscribed to mtype, sourced from the hub's own reserved id, per
// spec §4.4 ("including the hub's own synthetic 'hub' client as sender").
func (h *Hub) broadcastLifecycle(mtype string, params *sampvalue.Mapping) {
	message := sampvalue.NewMapping()
	message.Set("samp.mtype", mtype)
	message.Set("samp.params", params)

	h.mu.RLock()
	targets := h.subs.match(mtype)
	deliverers := make(map[string]Deliverer, len(targets))
	for clientID := range targets {
		if rec, ok := h.clients[clientID]; ok && rec.hasCallback {
			deliverers[clientID] = rec.deliverer
		}
	}
	h.mu.RUnlock()

	for clientID, d := range deliverers {
		h.deliverAsync(d, "receiveNotification", []sampvalue.Value{HubSelfID, message}, HubSelfID, clientID, mtype)
	}
}

// deliverAsync pushes a callback outside the registry lock, logging and
// swallowing any failure per spec §4.4's failure policy. Concurrent
// deliveries to the same recipient are capped at callbackConcurrency;
// further sends queue behind the semaphore rather than firing unbounded
// goroutines at one slow client. Deliveries sharing a (senderID,
// recipientID) pair additionally chain behind one another so B always
// observes A's messages in A's submission order (spec §8 invariant 4),
// even though each still fires on its own goroutine.
func (h *Hub) deliverAsync(d Deliverer, method string, args []sampvalue.Value, senderID, recipientID, mtype string) {
	sem := h.deliverySemFor(recipientID)
	wait, done := h.chainPair(senderID, recipientID)
	go func() {
		if wait != nil {
			<-wait
		}
		sem <- struct{}{}
		if err := d.Deliver(method, args); err != nil {
			h.logger.Info("callback delivery failed",
				"method", method, "recipient", recipientID, "mtype", mtype, "error", err)
		}
		<-sem
		close(done)
	}()
}

// chainPair registers this delivery as the new tail of its pair's chain
// and returns the previous tail (nil if this is the pair's first
// delivery) for the caller to wait on before firing.
func (h *Hub) chainPair(senderID, recipientID string) (wait <-chan struct{}, done chan struct{}) {
	key := pairKey{senderID, recipientID}
	done = make(chan struct{})
	h.pairMu.Lock()
	wait = h.pairTails[key]
	h.pairTails[key] = done
	h.pairMu.Unlock()
	return wait, done
}

// deliverySemFor returns the bounded slot pool for recipientID, creating
// it on first use.
func (h *Hub) deliverySemFor(recipientID string) chan struct{} {
	h.semMu.Lock()
	defer h.semMu.Unlock()
	sem, ok := h.deliverySems[recipientID]
	if !ok {
		sem = make(chan struct{}, h.callbackConcurrency)
		h.deliverySems[recipientID] = sem
	}
	return sem
}

// dropDeliverySem discards the slot pool for a client that has just
// unregistered, so a later client reusing the same id (unlikely with the
// monotonic allocator, but not impossible after a very long run) doesn't
// inherit a queue of stale waiters.
func (h *Hub) dropDeliverySem(recipientID string) {
	h.semMu.Lock()
	defer h.semMu.Unlock()
	delete(h.deliverySems, recipientID)
}

// dropPairTailsFor discards chain state for every pair involving clientID,
// once it has unregistered and can no longer be a sender or recipient.
func (h *Hub) dropPairTailsFor(clientID string) {
	h.pairMu.Lock()
	defer h.pairMu.Unlock()
	for key := range h.pairTails {
		if key.senderID == clientID || key.recipientID == clientID {
			delete(h.pairTails, key)
		}
	}
}

// Shutdown broadcasts samp.hub.event.shutdown, wakes every outstanding
// callAndWait/tracking entry with a synthetic HubShutdown response, and
// notifies observers. Idempotent. Register called after Shutdown fails
// with HubShutdown; in-flight deliveries already dispatched are not
// awaited beyond this call (spec §4.4: "drain outstanding deliveries with
// a short grace period" is the caller's — i.e. cmd/samphubd's —
// responsibility via context cancellation on the HTTP servers).
func (h *Hub) Shutdown() {
	h.shutdownMu.Lock()
	if h.shutDown {
		h.shutdownMu.Unlock()
		return
	}
	h.shutDown = true
	h.shutdownMu.Unlock()

	h.broadcastLifecycle("samp.hub.event.shutdown", sampvalue.NewMapping())

	h.callMu.Lock()
	entries := make([]*callEntry, 0, len(h.calls))
	for _, e := range h.calls {
		entries = append(entries, e)
	}
	h.calls = make(map[string]*callEntry)
	h.callMu.Unlock()

	response := syntheticErrorResponse(&HubShutdown{})
	for _, entry := range entries {
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
		h.deliverAsync(sender.deliverer, "receiveResponse", []sampvalue.Value{entry.recipientID, entry.tag, response}, entry.recipientID, entry.senderID, "")
	}

	h.notifyObservers(func(o Observer) { o.OnShutdown() })
}
