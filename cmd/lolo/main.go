// Package main is the lolo command-line entry point. It wires the
// configuration, provider client, tools and memory together and runs
// one question through the conversation loop (or a live voice session).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Cyclone1070/lolo/internal/cache"
	"github.com/Cyclone1070/lolo/internal/config"
	"github.com/Cyclone1070/lolo/internal/cost"
	"github.com/Cyclone1070/lolo/internal/logging"
	"github.com/Cyclone1070/lolo/internal/memory"
	"github.com/Cyclone1070/lolo/internal/orchestrator"
	provider "github.com/Cyclone1070/lolo/internal/provider/models"
	"github.com/Cyclone1070/lolo/internal/provider/openai"
	"github.com/Cyclone1070/lolo/internal/tool"
	"github.com/Cyclone1070/lolo/internal/tool/image"
	"github.com/Cyclone1070/lolo/internal/tool/pyexec"
	"github.com/Cyclone1070/lolo/internal/tool/stub"
	"github.com/Cyclone1070/lolo/internal/tool/terminal"
	"github.com/Cyclone1070/lolo/internal/tool/webfetch"
	"github.com/Cyclone1070/lolo/internal/tool/websearch"
	"github.com/Cyclone1070/lolo/internal/ui"
	"github.com/Cyclone1070/lolo/internal/voice"
)

const usageText = `Usage: lolo [flags] <question>

A personal terminal assistant.

Flags:
  --ask       answer without executing any shell commands
  --voice     start a live voice conversation instead of a text question
  --new       forget previous conversations before starting
  --verbose   log debug detail to stderr
`

// deps holds everything a run needs, built once in run().
type deps struct {
	cfg        *config.Config
	client     *openai.Client
	gate       orchestrator.CommandGate
	accountant *cost.Accountant
	console    *ui.Console
	logger     *slog.Logger
	store      *memory.Store
	mode       orchestrator.Mode
	apiKey     string
}

func main() {
	os.Exit(run())
}

func run() int {
	askMode := flag.Bool("ask", false, "disable command execution")
	voiceMode := flag.Bool("voice", false, "start a voice session")
	newSession := flag.Bool("new", false, "clear conversation memory first")
	verbose := flag.Bool("verbose", false, "verbose logging")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usageText) }
	flag.Parse()

	// Load configuration (defaults + ~/.config/lolo/config.json)
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		fmt.Fprintf(os.Stderr, "Using default configuration.\n")
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: invalid config: %v\n", err)
		fmt.Fprintf(os.Stderr, "Using default configuration.\n")
		cfg = config.DefaultConfig()
	}

	logger, logCloser := logging.New(*verbose)
	defer logCloser.Close()

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "Error: OPENAI_API_KEY environment variable is required")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := memory.NewStore(config.ExpandHome(cfg.Memory.Path), cfg.Memory.MaxConversations, logger)
	if *newSession {
		if err := store.Clear(); err != nil {
			logger.Warn("could not clear memory", "error", err)
		}
	}

	mode := orchestrator.ModeNormal
	if *askMode {
		mode = orchestrator.ModeAsk
	}

	console := ui.NewConsole()
	d := deps{
		cfg:        cfg,
		client:     openai.NewClient(apiKey, logger, openai.WithTimeout(time.Duration(cfg.Model.RequestTimeoutSeconds)*time.Second)),
		gate:       orchestrator.NewCommandGate(console, logger),
		accountant: cost.NewAccountant(cfg.Model.Pricing, cfg.Limits.CostWarningThreshold, cfg.Limits.MaxCostPerRequest),
		console:    console,
		logger:     logger,
		store:      store,
		mode:       mode,
		apiKey:     apiKey,
	}

	if *voiceMode {
		return runVoice(ctx, d)
	}

	question := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if question == "" {
		flag.Usage()
		return 2
	}
	return runText(ctx, d, question, *newSession)
}

func runText(ctx context.Context, d deps, question string, freshStart bool) int {
	orch := orchestrator.New(orchestrator.Options{
		Provider:   d.client,
		Tools:      createTextTools(d),
		Gate:       d.gate,
		Accountant: d.accountant,
		UI:         d.console,
		Logger:     d.logger,
		Config:     d.cfg,
		Mode:       d.mode,
	})

	mem := d.store.Load()
	var history []provider.Item
	if !freshStart {
		history = memory.ContextItems(mem, d.cfg.Memory.ContextConversations)
	}

	d.console.PrintQuestion(question)
	d.console.StartThinking("thinking")
	result, err := orch.Run(ctx, question, history)
	d.console.StopThinking()

	if err != nil {
		var abort *orchestrator.AbortError
		if errors.As(err, &abort) {
			d.console.WriteWarning(abort.Error())
			d.console.PrintUsage(ui.UsageReport{
				Model: d.cfg.Model.Name,
				Usage: abort.Usage,
				Cost:  abort.Cost,
			})
			return 1
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	d.console.PrintAnswer(result.Answer)
	d.console.PrintCitations(result.Citations)
	d.console.PrintUsage(ui.UsageReport{
		Model:         d.cfg.Model.Name,
		ToolsUsed:     result.ToolsUsed,
		Usage:         result.Usage,
		Cost:          result.Cost,
		UnknownModels: result.UnknownModels,
	})

	if err := d.store.Append(mem, memory.Conversation{
		Timestamp: time.Now(),
		Question:  question,
		Answer:    result.Answer,
		Tokens:    result.Usage.TotalTokens,
		Cost:      result.Cost,
		Mode:      string(d.mode),
	}); err != nil {
		d.logger.Warn("could not save conversation", "error", err)
	}
	return 0
}

func runVoice(ctx context.Context, d deps) int {
	session := voice.NewSession(voice.Options{
		APIKey:     d.apiKey,
		Config:     d.cfg,
		Tools:      createVoiceTools(d),
		Gate:       d.gate,
		Accountant: d.accountant,
		UI:         d.console,
		Logger:     d.logger,
		Mode:       d.mode,
	})
	session.OnTranscript = func(entry voice.TranscriptEntry) {
		if entry.Role == "user" {
			d.console.PrintQuestion(entry.Text)
		} else {
			d.console.PrintAnswer(entry.Text)
		}
	}

	err := session.Run(ctx)

	exitCode := 0
	if err != nil {
		var abort *orchestrator.AbortError
		if errors.As(err, &abort) {
			d.console.WriteWarning(abort.Error())
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		exitCode = 1
	}

	saveVoiceTranscript(d, session.Transcript())
	d.console.PrintUsage(ui.UsageReport{
		Model: d.cfg.Voice.Model,
		Usage: d.accountant.Usage(),
		Cost:  d.accountant.Cost(),
	})
	return exitCode
}

// saveVoiceTranscript persists the spoken turns as question/answer pairs.
func saveVoiceTranscript(d deps, transcript []voice.TranscriptEntry) {
	if len(transcript) == 0 {
		return
	}
	mem := d.store.Load()
	var question string
	for _, entry := range transcript {
		switch entry.Role {
		case "user":
			question = entry.Text
		case "assistant":
			if err := d.store.Append(mem, memory.Conversation{
				Timestamp: time.Now(),
				Question:  question,
				Answer:    entry.Text,
				Cost:      0,
				Mode:      "voice",
			}); err != nil {
				d.logger.Warn("could not save voice conversation", "error", err)
				return
			}
			question = ""
		}
	}
}

// createTextTools builds the tool set for a text request. Ask mode drops
// the side-effecting tools; web search uses the endpoint's built-in.
func createTextTools(d deps) *tool.Set {
	webCache := cache.New(config.ExpandHome("~/.lolo/cache"),
		time.Duration(d.cfg.Tools.WebCacheTTLSeconds)*time.Second)

	tools := []tool.Tool{
		webfetch.New(webCache, d.cfg.Tools.WebFetchMaxChars,
			time.Duration(d.cfg.Tools.WebFetchTimeoutSeconds)*time.Second, d.logger),
		pyexec.New(d.cfg, d.logger),
		image.NewGenerate(d.apiKey, d.cfg, d.logger),
		image.NewAnalyze(d.client, d.cfg),
		stub.NewWeather(),
		stub.NewHoroscope(),
	}
	if d.mode != orchestrator.ModeAsk {
		tools = append(tools, terminal.New(d.cfg, d.logger))
	}
	return tool.NewSet([]provider.ToolDefinition{tool.WebSearchBuiltin()}, tools...)
}

// createVoiceTools builds the tool set for a voice session. The realtime
// endpoint has no built-in search, so search runs as a function tool
// backed by a nested text-model request.
func createVoiceTools(d deps) *tool.Set {
	webCache := cache.New(config.ExpandHome("~/.lolo/cache"),
		time.Duration(d.cfg.Tools.WebCacheTTLSeconds)*time.Second)

	tools := []tool.Tool{
		websearch.New(d.client),
		webfetch.New(webCache, d.cfg.Tools.WebFetchMaxChars,
			time.Duration(d.cfg.Tools.WebFetchTimeoutSeconds)*time.Second, d.logger),
		stub.NewWeather(),
		stub.NewHoroscope(),
	}
	if d.mode != orchestrator.ModeAsk {
		tools = append(tools, terminal.New(d.cfg, d.logger))
	}
	return tool.NewSet(nil, tools...)
}
