package llm

import (
	"strings"

	"github.com/clai-dev/clai/session"
)

// ToolCallDelta is one incremental fragment of a tool call from a streamed
// response. A non-empty ID (or a changed index) marks the start of a new
// call; subsequent deltas for the same call carry only fragments.
type ToolCallDelta struct {
	Index     int
	ID        string
	Name      string
	Arguments string
}

// Accumulator reconstructs complete tool-call invocations and content text
// from streamed deltas, preserving arrival order. It performs no validation
// of the accumulated argument text; that is deferred to invocation time.
type Accumulator struct {
	content   strings.Builder
	pending   *pendingCall
	completed []session.ToolCall
}

type pendingCall struct {
	index int
	id    string
	name  strings.Builder
	args  strings.Builder
}

// NewAccumulator returns an empty accumulator ready for one turn.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// AddContent appends a content fragment. Content accumulates independently
// of tool-call state; a turn may carry both prose and tool calls.
func (a *Accumulator) AddContent(fragment string) {
	a.content.WriteString(fragment)
}

// AddToolCall feeds one tool-call delta. A delta with a new id (or a new
// index) flushes the pending call and starts a new one; otherwise the name
// and argument fragments are appended verbatim, in arrival order.
func (a *Accumulator) AddToolCall(d ToolCallDelta) {
	if a.pending != nil {
		newID := d.ID != "" && d.ID != a.pending.id
		if newID || d.Index != a.pending.index {
			a.flush()
		}
	}
	if a.pending == nil {
		a.pending = &pendingCall{index: d.Index, id: d.ID}
	}
	if d.ID != "" {
		a.pending.id = d.ID
	}
	a.pending.name.WriteString(d.Name)
	a.pending.args.WriteString(d.Arguments)
}

func (a *Accumulator) flush() {
	a.completed = append(a.completed, session.ToolCall{
		ID:        a.pending.id,
		Name:      a.pending.name.String(),
		Arguments: a.pending.args.String(),
	})
	a.pending = nil
}

// Finish flushes any still-pending call and returns the turn's content and
// completed tool calls in emission order.
func (a *Accumulator) Finish() (content string, calls []session.ToolCall) {
	if a.pending != nil {
		a.flush()
	}
	return a.content.String(), a.completed
}
