package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"switchboard/internal/adapter/embedding"
	"switchboard/internal/adapter/generation"
	"switchboard/internal/adapter/tool"
	"switchboard/internal/adapter/vectorstore"
	"switchboard/internal/domain"
	"switchboard/internal/infra/config"
	"switchboard/internal/infra/logger"
	"switchboard/internal/infra/tracer"
	"switchboard/internal/usecase"
	"switchboard/internal/usecase/eventbus"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := flag.String("config", "./config.yaml", "path to configuration file")
	flag.Parse()

	// 1. Config
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// 2. Logger & tracer
	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logCloser()

	ctx := context.Background()
	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer tracerShutdown(ctx)

	// 3. Event bus with a logging sink standing in for the history store.
	bus := eventbus.New(log)
	defer bus.Close()
	bus.SubscribeAll(func(_ context.Context, event domain.Event) {
		log.Debug("event",
			"type", string(event.Type),
			"session", event.SessionID,
			"payload", string(event.Payload),
		)
	})

	// 4. Generation chain (circuit breaker, failover, rate limit)
	generator, err := generation.Build(cfg.Generation, log)
	if err != nil {
		return fmt.Errorf("generation: %w", err)
	}

	// 5. Agents and their tool collaborators
	agents := buildAgents(cfg.Agents)
	clients, toolsCleanup, err := buildToolClients(cfg, agents, log)
	if err != nil {
		return fmt.Errorf("tools: %w", err)
	}
	defer toolsCleanup()

	// 6. Orchestrator and session
	orchestrator, err := usecase.NewOrchestrator(agents, clients, generator, bus, usecase.OrchestratorConfig{
		ToolTimeout: cfg.Tools.InvokeTimeout,
		MaxParallel: cfg.Dispatch.MaxParallel,
		MaxTokens:   cfg.Generation.MaxTokens,
		Temperature: cfg.Generation.Temperature,
	}, log)
	if err != nil {
		return fmt.Errorf("orchestrator: %w", err)
	}
	orchestrator.OnAgentSwitch(func(from, to domain.Agent) {
		if from.Name != "" {
			fmt.Printf("[switched to %s]\n", to.Name)
		}
	})

	session := usecase.NewSession(orchestrator, cfg.Session.MaxHistory, bus, log)
	defer session.Close(ctx)

	// 7. Turn loop on stdin, standing in for the voice transport.
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Println(session.Greeting())
	return turnLoop(ctx, session, log)
}

func turnLoop(ctx context.Context, session *usecase.Session, log *slog.Logger) error {
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		fmt.Print("> ")
		select {
		case <-ctx.Done():
			fmt.Println()
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if line == "" {
				continue
			}
			if line == "/quit" || line == "/exit" {
				return nil
			}

			result, err := session.ProcessTurn(ctx, line)
			if err != nil {
				log.Error("turn failed", "error", err)
				fmt.Println("Sorry, something went wrong.")
				continue
			}
			fmt.Println(result.Response)
			if len(result.ToolsUsed) > 0 {
				log.Info("turn completed",
					"tasks", result.TaskCount,
					"agents", result.AgentsUsed,
					"tools", result.ToolsUsed,
				)
			}
		}
	}
}

// buildAgents converts configuration records into domain agents.
func buildAgents(configs []config.AgentConfig) []domain.Agent {
	agents := make([]domain.Agent, len(configs))
	for i, ac := range configs {
		caps := domain.Capabilities{RoutingKeywords: ac.Capabilities.RoutingKeywords}
		if ws := ac.Capabilities.WebSearch; ws != nil {
			caps.WebSearch = &domain.WebSearchCapability{
				Enabled:    ws.Enabled,
				Provider:   ws.Provider,
				MaxResults: ws.MaxResults,
			}
		}
		if w := ac.Capabilities.Weather; w != nil {
			caps.Weather = &domain.WeatherCapability{Enabled: w.Enabled, Units: w.Units}
		}
		if r := ac.Capabilities.Retrieval; r != nil {
			caps.Retrieval = &domain.RetrievalCapability{
				Enabled:    r.Enabled,
				Collection: r.Collection,
				TopK:       r.TopK,
			}
		}
		agents[i] = domain.Agent{
			ID:           ac.ID,
			Name:         ac.Name,
			Description:  ac.Description,
			SystemPrompt: ac.SystemPrompt,
			Model:        ac.Model,
			Capabilities: caps,
		}
	}
	return agents
}

// buildToolClients constructs the session's tool collaborators from
// configuration. Clients for capabilities no agent enables stay nil.
func buildToolClients(cfg *config.Config, agents []domain.Agent, log *slog.Logger) (usecase.ToolClients, func(), error) {
	var clients usecase.ToolClients
	cleanup := func() {}

	var wantWeather, wantSearch, wantRetrieval bool
	for _, a := range agents {
		wantWeather = wantWeather || a.Capabilities.WeatherEnabled()
		wantSearch = wantSearch || a.Capabilities.WebSearchEnabled()
		wantRetrieval = wantRetrieval || a.Capabilities.RetrievalEnabled()
	}

	if wantWeather {
		clients.Weather = tool.NewWeather(cfg.Tools.WeatherAPIKey, cfg.Tools.WeatherBaseURL, log)
	}

	if wantSearch {
		backend, err := tool.NewSearchBackend(cfg.Tools.SearchProvider, cfg.Tools, log)
		if err != nil {
			return clients, cleanup, err
		}
		ws := tool.NewWebSearch(backend, cfg.Tools.SearchCacheTTL, log)
		if cfg.Tools.SearchRateLimit > 0 {
			ws.SetRateLimit(cfg.Tools.SearchRateLimit, cfg.Tools.SearchRateBurst)
		}
		clients.WebSearch = ws
	}

	if wantRetrieval {
		store, err := vectorstore.New(cfg.Tools.RetrievalDBPath, log)
		if err != nil {
			return clients, cleanup, err
		}
		cleanup = func() {
			if err := store.Close(); err != nil {
				log.Warn("closing passage store", "error", err)
			}
		}

		var opts []embedding.OpenAIOption
		if cfg.Embedding.Model != "" {
			opts = append(opts, embedding.WithOpenAIModel(cfg.Embedding.Model))
		}
		if cfg.Embedding.Dimensions > 0 {
			opts = append(opts, embedding.WithOpenAIDimensions(cfg.Embedding.Dimensions))
		}
		if cfg.Embedding.BaseURL != "" {
			opts = append(opts, embedding.WithOpenAIBaseURL(cfg.Embedding.BaseURL))
		}
		embedder := embedding.NewCachedEmbedder(
			embedding.NewOpenAIProvider(cfg.Embedding.APIKey, opts...),
			cfg.Embedding.CacheSize,
		)
		clients.Retrieval = tool.NewRetrieval(embedder, store, log)
	}

	return clients, cleanup, nil
}
