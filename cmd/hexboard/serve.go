// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kadirpekel/hexboard/internal/board"
	"github.com/kadirpekel/hexboard/internal/budget"
	"github.com/kadirpekel/hexboard/internal/config"
	"github.com/kadirpekel/hexboard/internal/event"
	"github.com/kadirpekel/hexboard/internal/llmprovider"
	"github.com/kadirpekel/hexboard/internal/observability"
	"github.com/kadirpekel/hexboard/internal/obslog"
	"github.com/kadirpekel/hexboard/internal/store"
	"github.com/kadirpekel/hexboard/internal/toolplugin"
	"github.com/kadirpekel/hexboard/internal/toolplugin/plugins"
)

// ServeCmd starts one board's actors and blocks until SIGINT or SIGTERM; it
// does not return on its own when the board's budget is exceeded.
type ServeCmd struct {
	Config string `short:"c" help:"Path to the engine config YAML." type:"path" required:""`
	Board  string `short:"b" help:"Board id to run. Defaults to the config's boardId."`
	Import string `help:"Board export YAML to import into the store before starting, if the board doesn't already exist." type:"path"`
	EnvFile string `name:"env-file" help:"Path to a .env file to overlay onto the process environment." type:"path"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := config.LoadEnv(c.EnvFile); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}

	level, err := obslog.ParseLevel(cli.LogLevel)
	if err != nil {
		return err
	}
	obslog.Init(level, os.Stderr)
	log := obslog.Get()

	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}

	boardID := c.Board
	if boardID == "" {
		boardID = cfg.BoardID
	}
	if boardID == "" {
		return fmt.Errorf("serve: no board id given (pass --board or set boardId in the config)")
	}

	tp, err := observability.InitGlobalTracer(ctx, observability.TracerConfig(cfg.Tracing))
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		if shutdowner, ok := tp.(interface{ Shutdown(context.Context) error }); ok {
			_ = shutdowner.Shutdown(context.Background())
		}
	}()

	metrics, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer metrics.Shutdown(context.Background())
	budgetMetrics := budget.NewMetrics()

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		gatherer := prometheus.Gatherers{metrics.Registry(), budgetMetrics.Registry()}
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics server stopped", "error", err)
			}
		}()
		defer srv.Close()
	}

	adapter, closeAdapter, err := openStore(cfg.Storage)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeAdapter()

	if c.Import != "" {
		exp, err := config.LoadBoardExport(c.Import)
		if err != nil {
			return fmt.Errorf("load board export: %w", err)
		}
		if _, getErr := adapter.GetBoard(ctx, exp.ID); getErr != nil {
			if err := config.ImportIntoStore(ctx, adapter, exp); err != nil {
				return fmt.Errorf("import board export: %w", err)
			}
			log.Info("imported board export", "board_id", exp.ID, "path", c.Import)
		}
	}

	catalog := toolplugin.NewRegistry()
	if err := plugins.RegisterBuiltins(catalog); err != nil {
		return fmt.Errorf("register builtin plugins: %w", err)
	}

	providers, err := buildProviders(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build providers: %w", err)
	}

	bus := event.New()
	runner := board.NewRunner(bus, adapter, providers, catalog, budgetMetrics)

	if cfg.Tracing.Enabled {
		runner.ProviderDecorator = observability.NewTracingProvider
		runner.ToolHostDecorator = observability.NewTracingToolHost
	}

	if err := runner.Start(ctx, boardID); err != nil {
		return fmt.Errorf("start board %s: %w", boardID, err)
	}
	log.Info("board started", "board_id", boardID)

	<-ctx.Done()
	log.Info("shutdown signal received, stopping board", "board_id", boardID)

	if _, ok := runner.Status(boardID); ok {
		if err := runner.Stop(boardID); err != nil {
			return fmt.Errorf("stop board %s: %w", boardID, err)
		}
	}
	return nil
}

func openStore(sc config.StorageConfig) (store.Adapter, func(), error) {
	var driver string
	switch sc.Dialect {
	case "postgres":
		driver = "postgres"
	case "mysql":
		driver = "mysql"
	default:
		driver = "sqlite3"
	}
	dsn := sc.DSN
	if dsn == "" {
		dsn = "hexboard.db"
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, nil, err
	}
	adapter, err := store.Open(db, store.Dialect(sc.Dialect))
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return adapter, func() { adapter.Close(); db.Close() }, nil
}

func buildProviders(ctx context.Context, cfg *config.EngineConfig) (*llmprovider.Registry, error) {
	registry := llmprovider.NewRegistry()
	for name, pc := range cfg.Providers {
		provider, err := buildProvider(ctx, name, pc)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", name, err)
		}
		registry.Register(name, provider)
	}
	registry.Register("mock", llmprovider.NewMock())
	return registry, nil
}

func buildProvider(ctx context.Context, name string, pc config.ProviderConfig) (llmprovider.Provider, error) {
	switch name {
	case "anthropic":
		return llmprovider.NewAnthropic(llmprovider.AnthropicConfig{
			APIKey: pc.APIKey, Model: pc.Model, MaxTokens: pc.MaxTokens, Temperature: pc.Temperature,
		})
	case "openai":
		return llmprovider.NewOpenAI(llmprovider.OpenAIConfig{
			APIKey: pc.APIKey, Model: pc.Model, MaxTokens: pc.MaxTokens, Temperature: pc.Temperature, BaseURL: pc.BaseURL,
		})
	case "gemini":
		return llmprovider.NewGemini(ctx, llmprovider.GeminiConfig{
			APIKey: pc.APIKey, Model: pc.Model, MaxTokens: pc.MaxTokens, Temperature: pc.Temperature,
		})
	default:
		return nil, fmt.Errorf("unknown provider kind %q (expected anthropic, openai, or gemini)", name)
	}
}
