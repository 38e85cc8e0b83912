package agent

// EventType identifies a decision loop event.
type EventType string

const (
	EventStep       EventType = "step"        // A model call is about to be made
	EventToolCall   EventType = "tool_call"   // The model requested a tool call
	EventToolResult EventType = "tool_result" // A tool call finished
	EventFinal      EventType = "final"       // The model produced its final answer
	EventError      EventType = "error"       // The run failed
)

// Event describes one observable moment of a run. Observers receive events
// synchronously, in the order they happen.
type Event struct {
	Type     EventType `json:"type"`
	Step     int       `json:"step"`
	ToolName string    `json:"tool_name,omitempty"`
	ToolArgs string    `json:"tool_args,omitempty"`
	Content  string    `json:"content,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Observer receives run events. A nil observer disables event reporting.
type Observer func(Event)

func (r *Runner) emit(event Event) {
	if r.observer != nil {
		r.observer(event)
	}
}
