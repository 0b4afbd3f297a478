package hub

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
)

// idAllocator mints public client ids and private keys.
//
// Public ids are a monotonic counter with a short prefix (spec §4.4:
// `"c0001"`-style); private keys are raw random bytes, not a uuid.NewRandom
// value — a dashed 16-byte hex string is the wrong shape for an opaque
// bearer secret, so this uses crypto/rand directly (see DESIGN.md).
type idAllocator struct {
	next int
}

func newIDAllocator() *idAllocator {
	return &idAllocator{next: 1}
}

func (a *idAllocator) nextClientID() string {
	id := fmt.Sprintf("c%04d", a.next)
	a.next++
	return id
}

// newPrivateKey returns a 16-24 byte, base64-encoded opaque token.
func newPrivateKey() (string, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating private key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// newSecret returns the samp.secret token the Standard Profile's lockfile
// advertises; same shape as a private key.
func newSecret() (string, error) {
	return newPrivateKey()
}

// NewSecret is the exported form of newSecret, for Profiles that need to
// mint a samp.secret before any client has registered.
func NewSecret() (string, error) {
	return newSecret()
}

// newMsgID mints a msg-id that opaquely carries a fresh random token; the
// correlation back to sender/tag is kept in the call-tracking table rather
// than encoded into the id itself, so its only requirement is global
// uniqueness for the hub's lifetime.
func newMsgID() string {
	return "msg-" + uuid.NewString()
}
