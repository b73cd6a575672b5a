package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tanvi/stepflow/internal/gateway"
	"github.com/tanvi/stepflow/internal/guardrail"
	"github.com/tanvi/stepflow/internal/observability"
	"github.com/tanvi/stepflow/internal/place"
	"github.com/tanvi/stepflow/internal/reason"
	"github.com/tanvi/stepflow/internal/render"
	"github.com/tanvi/stepflow/internal/store"
	"github.com/tanvi/stepflow/pkg/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

func main() {
	observability.PrintBanner()
	observability.InitializeTerminal()

	// Route all log output through the terminal mutex so it never
	// interrupts the dashboard's cursor save/restore sequence.
	log.SetOutput(observability.NewTermWriter())

	cfgPath := "config.json"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	cfg := config.LoadConfig(cfgPath)

	logger := observability.NewLogger()

	// Initialize LLM (using default enabled provider)
	pName, pCfg := cfg.GetDefaultProvider()
	if pName == "" {
		log.Fatal("No enabled provider found in config")
	}

	var llm llms.Model
	var err error
	switch pName {
	case "openai", "openrouter":
		opts := []openai.Option{
			openai.WithToken(pCfg.APIKey),
			openai.WithModel(pCfg.Model),
		}
		if pCfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(pCfg.BaseURL))
		}
		llm, err = openai.New(opts...)
	default:
		log.Fatalf("Provider %s not yet implemented in main", pName)
	}

	if err != nil {
		log.Fatal(err)
	}

	policy := guardrail.NewDefaultPolicyEngine()
	// Default copy rules: block meta-instructions leaking into user-facing copy
	_ = policy.DenyCopy(`(?i)^ask (the )?user`)
	_ = policy.DenyCopy(`(?i)\bplaceholder\b`)

	invoker := reason.NewInvoker(llm, cfg.Renderer.MaxRetries, cfg.CallTimeout(), logger)
	placer := &place.Placer{PassLimit: cfg.Renderer.RelaxationPassLimit}
	renderer := render.NewRenderer(invoker, placer, policy, logger)

	archive, err := store.NewRenderArchive(cfg.Archive.Path)
	if err != nil {
		log.Fatal(err)
	}
	defer archive.Close()

	gw := gateway.NewHTTPGateway(cfg.App.Addr, renderer, archive, logger)

	// Start background archive janitor with a cancelable context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	janitor := store.NewJanitor(archive, time.Hour, cfg.Retention(), logger)
	go janitor.Start(ctx)

	// Start Live Resource Dashboard (1-second updates)
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.PrintLiveStatus()
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.Heartbeat()
			}
		}
	}()

	// Start Gateway in a goroutine so we can wait for context in the main loop
	go func() {
		if err := gw.Start(); err != nil {
			log.Printf("\033[91m[ FAIL ] GATEWAY CRITICAL ERROR: %v\033[0m", err)
			stop() // stop caller if gateway dies
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	if err := gw.Stop(); err != nil {
		log.Printf("Error stopping gateway: %v", err)
	}

	// Reset terminal aesthetics
	observability.CleanupTerminal()

	// Give a short time for final logs/syncs
	time.Sleep(500 * time.Millisecond)
	log.Println("\033[95m[ EXIT ] RENDER ENGINE DE-INITIALIZED. GOODBYE.\033[0m")
}
