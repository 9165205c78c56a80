package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionViolation  Action = "violation"
	ActionVisibility Action = "visibility"
	ActionPing       Action = "ping"
)

// RequestPayload carries every proctor-stream action. Only the fields
// relevant to the action are set.
type RequestPayload struct {
	Action Action `json:"action"`

	// Violation fields.
	Message string `json:"message,omitempty"`

	// Visibility fields. State is "hidden" or "visible".
	State string `json:"state,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError  Event = "error"
	EventLogged Event = "logged"
	EventSaved  Event = "saved"
	EventPong   Event = "pong"
)

type LoggedResponse struct {
	Event      Event `json:"event"`
	Violations int   `json:"violations"`
}

type SavedResponse struct {
	Event Event `json:"event"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event         Event `json:"event"`
	TimeRemaining int   `json:"time_remaining"`
}
