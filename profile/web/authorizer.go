package web

// Decision is a ClientAuthorizer's verdict on one registration attempt.
type Decision int

const (
	// Deny rejects the registration; the transport layer answers 403.
	Deny Decision = iota
	// Allow admits the registration immediately.
	Allow
	// Prompt asks for a user decision. The server has no prompt path of its
	// own and answers a Prompt decision like Deny; PromptingAuthorizer
	// resolves its prompt to Allow or Deny before returning.
	Prompt
)

// ClientAuthorizer decides whether a registering page, identified by its
// Origin header, may join the hub. Spec §4.6: "accept, deny, or prompt the
// user."
type ClientAuthorizer interface {
	Authorize(origin string) Decision
}

// AllowAllAuthorizer accepts every origin. Suitable for tests and trusted
// local development, never for a production deployment exposed beyond
// loopback.
type AllowAllAuthorizer struct{}

func (AllowAllAuthorizer) Authorize(string) Decision { return Allow }

// PromptCallback lets a host application wire a real user-facing prompt
// into PromptingAuthorizer without this package depending on any UI
// toolkit.
type PromptCallback func(origin string) bool

// PromptingAuthorizer always prompts, deferring the actual accept/deny
// decision to an injected callback.
type PromptingAuthorizer struct {
	Callback PromptCallback
}

func (p PromptingAuthorizer) Authorize(origin string) Decision {
	if p.Callback == nil || !p.Callback(origin) {
		return Deny
	}
	return Allow
}

// OriginAuthorizer decides whether origin may receive CORS headers
// permitting it to read this endpoint's responses, independent of
// ClientAuthorizer's registration decision (spec §4.6: consulted "for
// preflight OPTIONS and for ordinary requests independently").
type OriginAuthorizer interface {
	AllowOrigin(origin string) bool
}

// AllowAllOrigins permits CORS for every origin.
type AllowAllOrigins struct{}

func (AllowAllOrigins) AllowOrigin(string) bool { return true }

// AllowlistOrigins permits only the configured set of origins.
type AllowlistOrigins struct {
	Allowed map[string]bool
}

func (a AllowlistOrigins) AllowOrigin(origin string) bool {
	return a.Allowed[origin]
}
