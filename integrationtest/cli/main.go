// Package main provides an interactive CLI for exercising hosts with
// real-time streaming output.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/rickchristie/harness"
	"github.com/rickchristie/harness/models"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorDim    = "\033[2m"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr,
			"%sError: %v%s\n",
			colorRed, err, colorReset)
		os.Exit(1)
	}
}

func run() error {
	logDir := ".logs"
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf(
			"failed to create log directory: %w", err)
	}
	logFile, err := os.Create(
		filepath.Join(logDir, "cli_harness.log"))
	if err != nil {
		return fmt.Errorf(
			"failed to create log file: %w", err)
	}
	defer logFile.Close()
	logger := zerolog.New(logFile).With().Timestamp().Logger()

	model, err := pickModel()
	if err != nil {
		return err
	}

	rl, err := readline.New(
		colorCyan + "prompt> " + colorReset)
	if err != nil {
		return fmt.Errorf(
			"failed to create readline: %w", err)
	}
	defer rl.Close()

	fmt.Printf("%sType a prompt to run it through a streaming host."+
		" Ctrl+C cancels the running host, 'q' quits.%s\n",
		colorDim, colorReset)

	for {
		line, err := rl.Readline()
		if err != nil {
			// Ctrl+C on an idle prompt or Ctrl+D: exit.
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "q" || line == "quit" || line == "exit" {
			return nil
		}

		runPrompt(line, model, logger)
	}
}

// pickModel uses the OpenAI API when a key is configured and a local
// canned model otherwise, so the demo works offline.
func pickModel() (harness.Model, error) {
	if os.Getenv("OPENAI_API_KEY") != "" {
		llm, err := openai.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create openai client: %w", err)
		}
		return models.NewLCGWrapper(llm).WithName("gpt-4o"), nil
	}

	fmt.Fprintf(os.Stderr,
		"%sOPENAI_API_KEY is not set; using a canned offline model.%s\n",
		colorYellow, colorReset)
	return &cannedModel{}, nil
}

// runPrompt drives one prompt through a streaming host, printing events
// as they arrive. Ctrl+C while the host runs cancels it.
func runPrompt(prompt string, model harness.Model, logger zerolog.Logger) {
	h := harness.StartStream(func(ctx context.Context, s *harness.Session) (string, error) {
		resp, err := s.Generate(ctx, []llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeHuman, prompt),
		})
		if err != nil {
			return "", err
		}
		answer := resp.Choices[0].Content
		for _, word := range strings.Fields(answer) {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if _, err := s.Emit("token", map[string]any{"text": word}); err != nil {
				return "", err
			}
		}
		return answer, nil
	},
		harness.WithName("cli"),
		harness.WithModel(model),
		harness.WithPricing(harness.DefaultPricing()),
		harness.WithLogger(logger),
	)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	stop := make(chan struct{})
	defer close(stop)
	defer signal.Stop(sigs)
	go func() {
		select {
		case <-sigs:
			h.Cancel()
		case <-stop:
		}
	}()

	ch, unsub := h.Stream()
	defer unsub()
	for ev := range ch {
		printEvent(ev)
	}

	res, err := h.Result(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%sresult: %v%s\n", colorRed, err, colorReset)
		return
	}
	printOutcome(res)
}

func printEvent(ev harness.Event) {
	switch ev.Type {
	case harness.EventComplete:
		fmt.Printf("\n%s[complete]%s %v\n", colorGreen, colorReset, ev.Value)
	case harness.EventError:
		fmt.Printf("\n%s[error]%s %v\n", colorRed, colorReset, ev.Err)
	default:
		if text, ok := ev.Payload["text"].(string); ok {
			fmt.Printf("%s ", text)
		} else {
			fmt.Printf("%s[%s]%s ", colorDim, ev.Type, colorReset)
		}
	}
}

func printOutcome(res *harness.Result[string]) {
	sum := res.Summary
	fmt.Printf("%soutcome=%s requests=%d tokens=%d/%d cost=$%.6f elapsed=%s%s\n",
		colorDim,
		res.Kind,
		sum.Requests,
		sum.InputTokens, sum.OutputTokens,
		sum.Cost,
		sum.Duration.Round(time.Millisecond),
		colorReset)
}

// cannedModel answers every prompt locally with fabricated usage, so
// the CLI is usable without credentials.
type cannedModel struct{}

func (m *cannedModel) Name() string { return "canned" }

func (m *cannedModel) GenerateContent(
	ctx context.Context,
	messages []llms.MessageContent,
	_ ...llms.CallOption,
) (*harness.ContentResponse, error) {
	select {
	case <-time.After(300 * time.Millisecond):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	prompt := ""
	if len(messages) > 0 {
		for _, part := range messages[len(messages)-1].Parts {
			if text, ok := part.(llms.TextContent); ok {
				prompt = text.Text
			}
		}
	}

	answer := fmt.Sprintf(
		"You said %q and this canned model has no opinion about it.", prompt)
	return &harness.ContentResponse{
		Choices: []*harness.ContentChoice{{Content: answer, StopReason: "stop"}},
		Info: &harness.GenerationInfo{
			InputTokens:  len(strings.Fields(prompt)),
			OutputTokens: len(strings.Fields(answer)),
			TotalTokens:  len(strings.Fields(prompt)) + len(strings.Fields(answer)),
		},
	}, nil
}
