package abi

// FilterOutcome is what a plugin's handle_filter export returns: either the
// replacement event (Ok) or an error message (Err), never both. This is the
// wire encoding of spec.md §6.2's `Result<event, string_error>`.
type FilterOutcome struct {
	Ok  *Event `json:"ok,omitempty"`
	Err string `json:"err,omitempty"`
}

// IsErr reports whether the plugin signalled failure.
func (o FilterOutcome) IsErr() bool {
	return o.Ok == nil
}
