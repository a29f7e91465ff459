package chart

import "encoding/json"

// Document is the portable, JSON-serializable chart produced for a plan.
// Figure carries the library-specific layout untouched. Immutable once built.
type Document struct {
	Kind         string         `json:"type"`
	Figure       map[string]any `json:"figure"`
	Description  string         `json:"description"`
	Reason       string         `json:"reason"`
	OriginCallID string         `json:"origin_call_id,omitempty"`
}

func (d Document) JSON() string {
	encoded, err := json.Marshal(d)
	if err != nil {
		// Figures are built from plain maps and scalars; marshaling them
		// cannot fail in practice. Keep the persisted artifact well-formed
		// regardless.
		return `{"type":"error","figure":{},"description":"unencodable chart document","reason":"marshal failure"}`
	}
	return string(encoded)
}
