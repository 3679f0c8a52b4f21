// Package turn implements the TurnEngine: the orchestration state machine
// that turns one inbound TurnTask into an ordered StreamEvent sequence
// terminating in exactly one final or error event.
package turn

import "github.com/haasonsaas/turnengine/internal/attachments"

// Task is one unit of work enqueued onto the TurnWorkerPool.
type Task struct {
	TurnID        string
	TraceID       string
	SessionID     string
	UserID        string
	Text          string
	Attachments   []attachments.Attachment
	SubagentName  string
}
