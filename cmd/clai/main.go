package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/clai-dev/clai/agent"
	"github.com/clai-dev/clai/agent/terminal"
	"github.com/clai-dev/clai/config"
	"github.com/clai-dev/clai/llm"
	"github.com/clai-dev/clai/permission"
	"github.com/clai-dev/clai/session"
	"github.com/clai-dev/clai/tools"
)

func main() {
	modeFlag := flag.String("m", "", "Execution mode: 'auto' or 'prompt'")
	sessionFlag := flag.String("s", "", "Session name to create or use")
	resumeFlag := flag.String("r", "", "Resume a session by name")
	modelFlag := flag.String("model", "", "Override the configured model")
	verboseFlag := flag.Bool("v", false, "Enable debug logging")
	flag.Parse()

	logLevel := slog.LevelWarn
	if *verboseFlag {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %+v\n", err)
		os.Exit(1)
	}
	if *modelFlag != "" {
		cfg.Model = *modelFlag
	}

	var sess *session.Session
	if *resumeFlag != "" {
		sess, err = session.Load(*resumeFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error resuming session '%s': %+v\n", *resumeFlag, err)
			os.Exit(1)
		}
		fmt.Printf("Resuming session: %s (%d messages)\n", sess.ID, len(sess.Messages))
	} else {
		sessionName := *sessionFlag
		if sessionName == "" {
			sessionName = defaultSessionName()
		}
		sess, err = session.New(sessionName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating session '%s': %+v\n", sessionName, err)
			os.Exit(1)
		}
		sess.AddMessage(session.Message{Role: "system", Content: agent.BuildSystemPrompt()})
		fmt.Printf("Starting new session: %s\n", sessionName)
	}

	if *modeFlag == "" {
		*modeFlag = "prompt"
	}
	var opMode agent.Mode
	var prompter permission.Prompter
	switch *modeFlag {
	case "auto":
		opMode = agent.ModeAuto
		prompter = permission.AutoPrompter{}
	case "prompt":
		opMode = agent.ModePrompt
		prompter = terminal.Prompter{}
	default:
		fmt.Fprintf(os.Stderr, "Invalid mode '%s'. Must be 'auto' or 'prompt'.\n", *modeFlag)
		os.Exit(1)
	}

	// Interrupt handling is scoped per turn by the terminal loop; the
	// session itself runs against a plain base context.
	ctx := context.Background()

	var client llm.Client
	switch cfg.LLMClient {
	case "openai":
		client, err = llm.NewOpenAIClient(ctx, cfg.Model)
	case "anthropic":
		client, err = llm.NewAnthropicClient(ctx, cfg.Model)
	case "gemini":
		client, err = llm.NewGeminiClient(ctx, cfg.Model)
	case "bedrock":
		client, err = llm.NewBedrockClient(ctx, cfg.Model)
	case "mock":
		client = &llm.MockClient{}
	default:
		fmt.Fprintf(os.Stderr, "Unknown llm_client '%s'. Must be 'openai', 'anthropic', 'gemini', 'bedrock', or 'mock'.\n", cfg.LLMClient)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing %s client: %+v\n", cfg.LLMClient, err)
		os.Exit(1)
	}

	registry := tools.NewRegistry(cfg)
	gate := permission.NewGate(permission.Options{
		AutoApprove:        cfg.Permissions.AutoApprove,
		AlwaysDeny:         cfg.Permissions.AlwaysDeny,
		AutoApproveReads:   cfg.Permissions.AutoApproveReads,
		SafeCommandClasses: cfg.Permissions.SafeCommandClasses,
	}, prompter)

	claiAgent := agent.New(cfg, sess, client, registry, gate, opMode)

	initialPrompt := strings.Join(flag.Args(), " ")
	fmt.Println("clai is ready. Type your prompt, or /help for commands.")
	term := terminal.New(claiAgent)
	if err := term.Run(ctx, initialPrompt); err != nil {
		fmt.Fprintf(os.Stderr, "Agent stopped with an error: %+v\n", err)
		os.Exit(1)
	}
}

func defaultSessionName() string {
	wd, err := os.Getwd()
	if err != nil {
		wd = "clai"
	}
	return fmt.Sprintf("%s_%s", filepath.Base(wd), time.Now().Format("2006-01-02_15-04-05"))
}
