package events

// Emitter builds StreamEvents for one turn, fixing session/turn/trace
// identity so call sites only supply the event-specific fields.
type Emitter struct {
	SessionID string
	TurnID    string
	TraceID   string
}

func NewEmitter(sessionID, turnID, traceID string) Emitter {
	return Emitter{SessionID: sessionID, TurnID: turnID, TraceID: traceID}
}

func (e Emitter) base(kind Kind) StreamEvent {
	return StreamEvent{Kind: kind, SessionID: e.SessionID, TurnID: e.TurnID, TraceID: e.TraceID}
}

func (e Emitter) Plan(summary string) StreamEvent {
	ev := e.base(KindPlan)
	ev.Summary = summary
	return ev
}

func (e Emitter) Action(summary string, metadata map[string]any) StreamEvent {
	ev := e.base(KindAction)
	ev.Summary = summary
	ev.Metadata = metadata
	return ev
}

func (e Emitter) DecisionSummary(summary string) StreamEvent {
	ev := e.base(KindDecisionSummary)
	ev.Summary = summary
	return ev
}

func (e Emitter) ResponseDelta(text string) StreamEvent {
	ev := e.base(KindResponseDelta)
	ev.Text = text
	return ev
}

func (e Emitter) Final(text string) StreamEvent {
	ev := e.base(KindFinal)
	ev.Text = text
	return ev
}

func (e Emitter) Error(code string, message string, retryable bool) StreamEvent {
	ev := e.base(KindError)
	ev.ErrorCode = code
	ev.Summary = message
	ev.Retryable = retryable
	return ev
}
