package agent

import (
	"sync"

	"github.com/clai-dev/clai/session"
	"github.com/pkoukk/tiktoken-go"
)

var (
	encoderOnce sync.Once
	encoder     *tiktoken.Tiktoken
)

// estimateText counts the tokens in one string. The cl100k_base encoding is
// a close match for all supported providers; when it cannot be loaded the
// count falls back to bytes/4.
func estimateText(text string) int {
	encoderOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoder = enc
		}
	})
	if encoder == nil {
		return len(text) / 4
	}
	return len(encoder.Encode(text, nil, nil))
}

// estimateMessages approximates the context window consumed by a transcript.
// Each message carries a small fixed framing overhead on top of its text.
func estimateMessages(messages []session.Message) int {
	const perMessageOverhead = 4
	total := 0
	for _, msg := range messages {
		total += perMessageOverhead
		total += estimateText(msg.Content)
		for _, tc := range msg.ToolCalls {
			total += estimateText(tc.Name)
			total += estimateText(tc.Arguments)
		}
	}
	return total
}
