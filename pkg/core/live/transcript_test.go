package live

import (
	"testing"
	"time"
)

func TestTranscriptAccumulatorConcatenatesInOrder(t *testing.T) {
	var acc transcriptAccumulator

	acc.AppendInput("turn on ")
	acc.AppendOutput("Sure, ")
	acc.AppendInput("the lights")
	acc.AppendOutput("turning them on now.")

	user, model := acc.Partial()
	if user != "turn on the lights" {
		t.Fatalf("user partial = %q", user)
	}
	if model != "Sure, turning them on now." {
		t.Fatalf("model partial = %q", model)
	}
}

func TestCompleteTurnClearsBothBuffers(t *testing.T) {
	var acc transcriptAccumulator
	now := time.Now()

	acc.AppendInput("hello")
	acc.AppendOutput("hi there")

	turn := acc.CompleteTurn(now)
	if turn.UserText != "hello" || turn.ModelText != "hi there" {
		t.Fatalf("turn = %+v", turn)
	}
	if !turn.CompletedAt.Equal(now) {
		t.Fatalf("completedAt = %v, want %v", turn.CompletedAt, now)
	}

	user, model := acc.Partial()
	if user != "" || model != "" {
		t.Fatalf("buffers not cleared: user=%q model=%q", user, model)
	}

	// Fragments after the boundary belong to the next turn only.
	acc.AppendInput("second")
	next := acc.CompleteTurn(now.Add(time.Second))
	if next.UserText != "second" || next.ModelText != "" {
		t.Fatalf("next turn = %+v", next)
	}
}

func TestCompleteTurnOnEmptyBuffers(t *testing.T) {
	var acc transcriptAccumulator
	turn := acc.CompleteTurn(time.Now())
	if turn.UserText != "" || turn.ModelText != "" {
		t.Fatalf("turn = %+v, want empty texts", turn)
	}
}
