package agent

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"
)

// BuildSystemPrompt assembles the system message sent as the first entry of
// every transcript. It anchors the model in the local environment; the tool
// schemas themselves travel separately with each request.
func BuildSystemPrompt() string {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "(unknown)"
	}

	var b strings.Builder
	b.WriteString("You are clai, a coding assistant running in the user's terminal.\n")
	b.WriteString("You help with software engineering tasks by reading, writing, and editing files, running commands, and searching the working directory.\n\n")
	fmt.Fprintf(&b, "Working directory: %s\n", cwd)
	fmt.Fprintf(&b, "Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(&b, "Date: %s\n\n", time.Now().Format("2006-01-02"))
	b.WriteString("Guidelines:\n")
	b.WriteString("- Use the provided tools to inspect the project before making changes.\n")
	b.WriteString("- Prefer small, targeted edits over rewriting whole files.\n")
	b.WriteString("- When a command fails, read the error output before retrying.\n")
	b.WriteString("- Stay within the working directory unless the user asks otherwise.\n")
	return b.String()
}
