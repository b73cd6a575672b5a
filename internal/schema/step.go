package schema

// Kind is the closed enumeration of UI step kinds.
type Kind string

const (
	KindPrompt   Kind = "prompt"
	KindChoice   Kind = "choice"
	KindInfo     Kind = "info"
	KindTerminal Kind = "terminal"
)

// kindAliases collapses the loose type names models emit onto the closed
// enumeration. Unknown names stay unknown.
var kindAliases = map[string]Kind{
	"prompt":           KindPrompt,
	"text":             KindPrompt,
	"text_input":       KindPrompt,
	"choice":           KindChoice,
	"multiple_choice":  KindChoice,
	"segmented_choice": KindChoice,
	"yes_no":           KindChoice,
	"info":             KindInfo,
	"intro":            KindInfo,
	"terminal":         KindTerminal,
	"confirmation":     KindTerminal,
}

// ParseKind resolves a raw type name to a step kind.
func ParseKind(raw string) (Kind, bool) {
	k, ok := kindAliases[raw]
	return k, ok
}

// Option is one selectable choice entry.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Payload carries the kind-specific content of a step. Fields unused by a
// kind stay zero and are omitted on the wire.
type Payload struct {
	Question      string   `json:"question,omitempty"`
	Placeholder   string   `json:"placeholder,omitempty"`
	Options       []Option `json:"options,omitempty"`
	AllowMultiple bool     `json:"allow_multiple,omitempty"`
	Required      bool     `json:"required,omitempty"`
	Title         string   `json:"title,omitempty"`
	Body          string   `json:"body,omitempty"`
}

// Step is one unit of rendered UI output. Position is assigned by the
// placer; until then it is -1.
type Step struct {
	ID       string  `json:"id"`
	Kind     Kind    `json:"kind"`
	Position int     `json:"position"`
	Payload  Payload `json:"payload"`
}
