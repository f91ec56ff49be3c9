package agent

import (
	"time"
)

// Result wraps an agent's output with the trace the orchestrator forwards
// into the response envelope. Created per invocation, never reused.
type Result[T any] struct {
	Output    T
	Reasoning string
	ToolsUsed []string
	LatencyMs float64
}

// timer measures one agent invocation.
type timer struct {
	start time.Time
}

func startTimer() timer {
	return timer{start: time.Now()}
}

func (t timer) elapsedMs() float64 {
	return float64(time.Since(t.start)) / float64(time.Millisecond)
}
