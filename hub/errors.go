package hub

import "fmt"

// Each error kind below carries a Kind() method so the transport layer can
// render it into the wire fault taxonomy of spec §7 without this package
// needing to know about XML-RPC or JSON.

// AuthFailure is raised by a Profile when register's supplied secret does
// not match, or when a private key lacks the Profile's key prefix. A
// private key that resolves to no live client fails with UnknownClient
// instead.
type AuthFailure struct {
	Reason string
}

func (e *AuthFailure) Error() string { return "auth failure: " + e.Reason }
func (e *AuthFailure) Kind() string  { return "samp.error.auth" }

// UnknownClient is raised when a private key does not resolve to a live
// client record.
type UnknownClient struct{}

func (e *UnknownClient) Error() string { return "unknown client" }
func (e *UnknownClient) Kind() string  { return "samp.error.unknownclient" }

// UnknownTarget is raised when a method names a recipient public id with no
// live registration.
type UnknownTarget struct {
	TargetID string
}

func (e *UnknownTarget) Error() string { return fmt.Sprintf("unknown target %q", e.TargetID) }
func (e *UnknownTarget) Kind() string  { return "samp.error.unknowntarget" }

// UnknownMsgId is raised by reply when its msg-id has no tracking entry.
type UnknownMsgId struct {
	MsgID string
}

func (e *UnknownMsgId) Error() string { return fmt.Sprintf("unknown msg-id %q", e.MsgID) }
func (e *UnknownMsgId) Kind() string  { return "samp.error.unknownmsgid" }

// NotSubscribed is raised when notify/call target a recipient not
// subscribed to the message's MType.
type NotSubscribed struct {
	TargetID string
	MType    string
}

func (e *NotSubscribed) Error() string {
	return fmt.Sprintf("%q is not subscribed to %q", e.TargetID, e.MType)
}
func (e *NotSubscribed) Kind() string { return "samp.error.notsubscribed" }

// Timeout is raised by callAndWait when no reply arrives before its
// deadline.
type Timeout struct {
	MsgID string
}

func (e *Timeout) Error() string { return fmt.Sprintf("timed out waiting for reply to %q", e.MsgID) }
func (e *Timeout) Kind() string  { return "samp.error.timeout" }

// Overloaded is raised by register once the hub's concurrent-registration
// bound is reached.
type Overloaded struct {
	Limit int
}

func (e *Overloaded) Error() string {
	return fmt.Sprintf("hub is at its registration limit (%d)", e.Limit)
}
func (e *Overloaded) Kind() string { return "samp.error.overloaded" }

// HubShutdown is the synthetic error every outstanding waiter observes when
// the hub shuts down.
type HubShutdown struct{}

func (e *HubShutdown) Error() string { return "hub is shutting down" }
func (e *HubShutdown) Kind() string  { return "samp.error.hubshutdown" }
