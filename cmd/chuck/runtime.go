package main

import (
	"context"
	"fmt"
	"time"

	"chuck/internal/config"
	"chuck/internal/gateway"
	"chuck/internal/logging"
	"chuck/internal/manager"
	"chuck/internal/tracing"
)

// runtime bundles the wired process components.
type runtime struct {
	cfg    *config.Config
	mgr    *manager.Manager
	gw     *gateway.Gateway
	traces *tracing.Provider
}

// openRuntime is replaced in tests with a stub-backed runtime.
var openRuntime = buildRuntime

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.DefaultConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// buildRuntime loads config and wires gateway, tracing and manager.
func buildRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	globalInfo, err := cfg.LoadContext()
	if err != nil {
		return nil, err
	}

	traces, err := tracing.NewProvider(tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		Exporter:     cfg.Tracing.Exporter,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SampleRate:   cfg.Tracing.SampleRate,
		ServiceName:  cfg.Tracing.ServiceName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start tracing: %w", err)
	}

	client, err := gateway.NewGeminiClient(ctx, gateway.GeminiConfig{
		APIKey: cfg.LLM.APIKey,
		Model:  cfg.LLM.Model,
	})
	if err != nil {
		_ = traces.Shutdown(ctx)
		return nil, err
	}

	gw := gateway.New(client, gateway.Config{
		MaxConcurrent: cfg.Gateway.MaxConcurrent,
		Timeout:       cfg.GetLLMTimeout(),
		MaxRetries:    cfg.Gateway.MaxRetries,
		BackoffBase:   cfg.GetRetryBackoffBase(),
		BackoffMax:    cfg.GetRetryBackoffMax(),
	}, gateway.WithTracer(traces.Tracer()))

	mgr := manager.New(manager.Config{
		Goal:            cfg.Goal,
		GlobalInfo:      globalInfo,
		DefaultCapacity: cfg.Registers.DefaultCapacity,
		ThoughtDepth:    cfg.Angels.ThoughtDepth,
		InboxSize:       cfg.Angels.InboxSize,
	}, gw, manager.WithTracer(traces.Tracer()))

	logging.Boot("runtime ready: model=%s tracing=%v", client.Model(), traces.Enabled())
	return &runtime{cfg: cfg, mgr: mgr, gw: gw, traces: traces}, nil
}

// Close flushes traces and logs gateway counters.
func (r *runtime) Close() {
	if r.gw != nil {
		s := r.gw.Stats()
		logging.CLIDebug("gateway stats: calls=%d attempts=%d failures=%d", s.Calls, s.Attempts, s.Failures)
	}
	if r.traces == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.traces.Shutdown(ctx); err != nil {
		logging.Get(logging.CategoryCLI).Warn("trace shutdown: %v", err)
	}
}
