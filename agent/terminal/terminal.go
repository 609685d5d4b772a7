// Package terminal implements the interactive CLI surface: the read-eval
// loop, slash commands, and the permission prompt.
package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/clai-dev/clai/agent"
	"github.com/clai-dev/clai/permission"
	"github.com/clai-dev/clai/session"
	"github.com/clai-dev/clai/tools"
)

// Terminal handles the terminal interaction mode for the agent.
type Terminal struct {
	agent *agent.Agent
}

// New creates a Terminal around an assembled agent.
func New(a *agent.Agent) *Terminal {
	return &Terminal{agent: a}
}

// Run starts the interactive session. An initial prompt from the command
// line is processed before reading from stdin.
func (t *Terminal) Run(ctx context.Context, initialPrompt string) error {
	if initialPrompt != "" {
		if err := t.processTurn(ctx, initialPrompt); err != nil {
			return err
		}
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(promptTag.Render("You:") + " ")
		if !scanner.Scan() {
			// EOF or read error ends the session
			break
		}

		userInput := strings.TrimSpace(scanner.Text())
		if userInput == "" {
			continue
		}

		if strings.HasPrefix(userInput, "/") {
			if quit := t.handleCommand(userInput); quit {
				break
			}
			continue
		}

		if err := t.processTurn(ctx, userInput); err != nil {
			fmt.Println(errorStyle.Render(fmt.Sprintf("Error: %v", err)))
		}
	}

	return scanner.Err()
}

// handleCommand dispatches a slash command. It reports whether the session
// should end.
func (t *Terminal) handleCommand(input string) bool {
	switch strings.Fields(input)[0] {
	case "/quit", "/exit":
		return true
	case "/clear":
		if t.agent.Session.Clear() {
			t.agent.ResetStats()
			fmt.Println(dimStyle.Render("Conversation cleared."))
		}
	case "/compact":
		if t.agent.Compact() {
			fmt.Println(dimStyle.Render("Conversation compacted."))
		} else {
			fmt.Println(dimStyle.Render("Nothing to compact."))
		}
	case "/stats":
		t.printStats()
	case "/help":
		t.printHelp()
	default:
		fmt.Println(warnStyle.Render(fmt.Sprintf("Unknown command %s. Try /help.", input)))
	}
	return false
}

func (t *Terminal) printStats() {
	stats := t.agent.Stats()
	fmt.Printf("Session:        %s\n", t.agent.Session.ID)
	fmt.Printf("Mode:           %s\n", t.agent.Mode)
	fmt.Printf("Messages:       %d\n", len(t.agent.Session.Messages))
	fmt.Printf("Model turns:    %d\n", stats.Turns)
	fmt.Printf("Tool calls:     %d (%d denied)\n", stats.ToolCalls, stats.Denied)
	fmt.Printf("Compactions:    %d\n", stats.Compactions)
	fmt.Printf("Tokens used:    %d prompt, %d completion\n", stats.Usage.PromptTokens, stats.Usage.CompletionTokens)
	fmt.Printf("Context size:   ~%d tokens\n", t.agent.EstimatedTokens())
}

func (t *Terminal) printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  /quit, /exit   end the session")
	fmt.Println("  /clear         drop the conversation history")
	fmt.Println("  /compact       shrink the history to the most recent messages")
	fmt.Println("  /stats         show session usage counters")
	fmt.Println("  /help          show this help")
}

// processTurn handles a single user input turn. Ctrl-C cancels only the
// in-flight turn: the signal scope ends with the turn, so the next input
// starts from a fresh context.
func (t *Terminal) processTurn(ctx context.Context, userInput string) error {
	turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	callbacks := agent.ProcessCallbacks{
		OnAssistantMessage: func(message string) {
			fmt.Printf("%s %s\n", assistantTag.Render("clai:"), message)
		},
		OnToolCall: func(toolCall session.ToolCall) {
			fmt.Println(toolCallStyle.Render(fmt.Sprintf("→ %s %s", toolCall.Name, summarizeArgs(toolCall.Arguments))))
		},
		OnToolResult: func(toolCall session.ToolCall, result *tools.Result) {
			if !result.Success {
				fmt.Println(toolCallStyle.Render(fmt.Sprintf("  %s failed: %s", toolCall.Name, result.Error)))
			}
		},
		OnWarning: func(warning string) {
			fmt.Println(warnStyle.Render("Warning: " + warning))
		},
	}

	err := t.agent.ProcessUserInput(turnCtx, userInput, callbacks)
	if errors.Is(err, context.Canceled) {
		fmt.Println(dimStyle.Render("Interrupted."))
		return nil
	}
	return err
}

// summarizeArgs renders tool arguments for the call trace, clipped to a
// single short line.
func summarizeArgs(arguments string) string {
	args := strings.Join(strings.Fields(arguments), " ")
	if len(args) > 80 {
		args = args[:77] + "..."
	}
	return args
}

// Prompter asks the user to approve a tool call with an interactive select.
type Prompter struct{}

func (Prompter) Prompt(ctx context.Context, toolName, description string) (permission.Decision, error) {
	var decision permission.Decision
	sel := huh.NewSelect[permission.Decision]().
		Title(fmt.Sprintf("Allow %s?", toolName)).
		Description(description).
		Options(
			huh.NewOption("Allow once", permission.DecisionAllowOnce),
			huh.NewOption("Allow for this session", permission.DecisionAllowSession),
			huh.NewOption("Deny", permission.DecisionDeny),
			huh.NewOption("Deny and block this tool", permission.DecisionDenyAlways),
		).
		Value(&decision)

	if err := huh.NewForm(huh.NewGroup(sel)).WithShowHelp(true).Run(); err != nil {
		return permission.DecisionDeny, err
	}
	return decision, nil
}
