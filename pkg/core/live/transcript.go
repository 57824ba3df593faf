package live

import (
	"strings"
	"sync"
	"time"
)

// ConversationTurn is one completed user/model exchange.
type ConversationTurn struct {
	UserText    string    `json:"user_text"`
	ModelText   string    `json:"model_text"`
	CompletedAt time.Time `json:"completed_at"`
}

// transcriptAccumulator collects transcript fragments for the turn in
// progress. Fragments concatenate in arrival order with no separators; both
// buffers clear together when the turn completes, so a fragment can never
// leak into the next turn.
type transcriptAccumulator struct {
	mu     sync.Mutex
	input  strings.Builder
	output strings.Builder
}

func (a *transcriptAccumulator) AppendInput(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.input.WriteString(text)
}

func (a *transcriptAccumulator) AppendOutput(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.output.WriteString(text)
}

// Partial returns the in-progress transcripts without clearing them.
func (a *transcriptAccumulator) Partial() (input, output string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.input.String(), a.output.String()
}

// CompleteTurn snapshots both buffers into a ConversationTurn and clears
// them in the same critical section.
func (a *transcriptAccumulator) CompleteTurn(at time.Time) ConversationTurn {
	a.mu.Lock()
	defer a.mu.Unlock()
	turn := ConversationTurn{
		UserText:    a.input.String(),
		ModelText:   a.output.String(),
		CompletedAt: at,
	}
	a.input.Reset()
	a.output.Reset()
	return turn
}
