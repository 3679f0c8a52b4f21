// Package events implements StreamEvent emission and the EventSink that
// publishes events back to the gateway: plan, action, decision_summary,
// response_delta, final, and error, one terminal event per turn.
package events

// Kind is a StreamEvent's discriminator.
type Kind string

const (
	KindPlan            Kind = "plan"
	KindAction          Kind = "action"
	KindDecisionSummary Kind = "decision_summary"
	KindResponseDelta   Kind = "response_delta"
	KindFinal           Kind = "final"
	KindError           Kind = "error"
)

// StreamEvent is one item in a turn's ordered event stream.
type StreamEvent struct {
	Kind      Kind           `json:"kind"`
	SessionID string         `json:"session_id"`
	TurnID    string         `json:"turn_id"`
	TraceID   string         `json:"trace_id"`
	Summary   string         `json:"summary,omitempty"`
	Text      string         `json:"text,omitempty"`
	ErrorCode string         `json:"error_code,omitempty"`
	Retryable bool           `json:"retryable,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}
