package live

// Event is the interface for all live session events.
type Event interface {
	// EventType returns the event type string for serialization.
	EventType() string
}

// SessionStartedEvent is emitted once the channel and devices are up.
type SessionStartedEvent struct {
	Model string `json:"model"`
	Voice string `json:"voice"`
}

func (e *SessionStartedEvent) EventType() string { return "session.started" }

// SessionEndedEvent is emitted when the session ends for any reason.
type SessionEndedEvent struct {
	Reason string `json:"reason,omitempty"`
}

func (e *SessionEndedEvent) EventType() string { return "session.ended" }

// StateChangedEvent is emitted on every state transition.
type StateChangedEvent struct {
	From State `json:"from"`
	To   State `json:"to"`
}

func (e *StateChangedEvent) EventType() string { return "state.changed" }

// UserTranscriptEvent carries a fragment of the user's transcribed speech.
type UserTranscriptEvent struct {
	Text string `json:"text"`
}

func (e *UserTranscriptEvent) EventType() string { return "transcript.user" }

// ModelTranscriptEvent carries a fragment of the model's spoken response.
type ModelTranscriptEvent struct {
	Text string `json:"text"`
}

func (e *ModelTranscriptEvent) EventType() string { return "transcript.model" }

// TurnCompletedEvent is emitted when a user/model exchange finishes.
type TurnCompletedEvent struct {
	Turn ConversationTurn `json:"turn"`
}

func (e *TurnCompletedEvent) EventType() string { return "turn.completed" }

// InterruptedEvent is emitted when user speech cuts off the model's turn.
// Pending playback has already been flushed when this is delivered.
type InterruptedEvent struct{}

func (e *InterruptedEvent) EventType() string { return "turn.interrupted" }

// ErrorEvent is emitted when the session hits a terminal error.
type ErrorEvent struct {
	Err error `json:"-"`
}

func (e *ErrorEvent) EventType() string { return "error" }
