package navsync

// Client frame types.
const (
	TypeHello     = "hello"
	TypeScroll    = "scroll"
	TypeIntersect = "intersect"
	TypeMenu      = "menu"
)

// Server frame types.
const (
	TypeState = "state"
	TypeError = "error"
)

// Menu actions carried by a menu frame.
const (
	ActionOpen    = "open"
	ActionClose   = "close"
	ActionSurface = "surface"
	ActionLink    = "link"
)

// ClientMessage is any frame the browser shim sends. Only the fields relevant
// to Type are read.
type ClientMessage struct {
	Type string `json:"type"`

	// hello
	ScrollY      int  `json:"scrollY,omitempty"`
	Intersection bool `json:"intersection,omitempty"`

	// scroll
	Y int `json:"y,omitempty"`

	// intersect
	Value bool `json:"value,omitempty"`

	// menu
	Action string `json:"action,omitempty"`
	Index  int    `json:"index,omitempty"`
}

// ServerMessage is a state push or an error report.
type ServerMessage struct {
	Type         string `json:"type"`
	Session      string `json:"session,omitempty"`
	Visible      bool   `json:"visible"`
	MenuOpen     bool   `json:"menuOpen"`
	ScrollLocked bool   `json:"scrollLocked"`
	Navigate     string `json:"navigate,omitempty"`
	Message      string `json:"message,omitempty"`
}
