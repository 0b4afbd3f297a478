package transport

import "github.com/lvalerom/samphub/sampvalue"

// Kinded is implemented by the hub's error taxonomy (AuthFailure,
// UnknownClient, NotSubscribed, ...) so this package can render them onto
// the wire without importing the hub package's concrete types.
type Kinded interface {
	error
	Kind() string
}

// FaultMapping builds the { "samp.errortxt": <msg>, "samp.code": <kind> }
// mapping spec §6 requires every method fault to carry.
func FaultMapping(err error) *sampvalue.Mapping {
	m := sampvalue.NewMapping()
	if k, ok := err.(Kinded); ok {
		m.Set("samp.errortxt", k.Error())
		m.Set("samp.code", k.Kind())
		return m
	}
	m.Set("samp.errortxt", err.Error())
	m.Set("samp.code", "samp.error")
	return m
}
