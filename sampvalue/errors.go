package sampvalue

import "fmt"

// MalformedValue is returned by Validate (and anything that validates as a
// side effect, such as FromJSON) when a value violates the SAMP data model.
type MalformedValue struct {
	// Reason describes what was wrong, e.g. "non-string map key" or
	// "character out of range".
	Reason string
	// Path identifies where in the tree the problem was found, using "."
	// to join mapping keys and "[i]" for list indices, root-relative.
	Path string
}

func (e *MalformedValue) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("malformed SAMP value: %s", e.Reason)
	}
	return fmt.Sprintf("malformed SAMP value at %s: %s", e.Path, e.Reason)
}
