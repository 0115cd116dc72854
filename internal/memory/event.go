package memory

// Kind tags what produced an event.
type Kind string

const (
	// KindReflection is generated commentary from the engine's own cycles.
	KindReflection Kind = "reflection"
	// KindAction is an executed state-mutating command.
	KindAction Kind = "action"
	// KindInsight is an abstraction discovery.
	KindInsight Kind = "insight"
	// KindUser is human-supplied input.
	KindUser Kind = "user"
)

// Event is one immutable record in the log.
//
// TS is wall-clock seconds as a float; ordering within the log is the
// append order, never the timestamp. Meta carries free-form metadata and is
// expected to contain a "symbols" entry listing the symbols attributed to
// the event; when absent, symbols are mined from Text.
type Event struct {
	TS   float64        `json:"ts"`
	Kind Kind           `json:"kind"`
	Text string         `json:"text"`
	Meta map[string]any `json:"meta"`
}

// Symbols returns the symbols attributed to the event: the explicit
// meta["symbols"] list when present (string entries only), otherwise the
// symbols mined from Text by the extractor.
//
// JSON replay turns the list into []any, so both slice shapes are accepted.
func (e Event) Symbols(extract func(string) []string) []string {
	switch raw := e.Meta["symbols"].(type) {
	case []string:
		return raw
	case []any:
		out := make([]string, 0, len(raw))
		for _, v := range raw {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return extract(e.Text)
}
