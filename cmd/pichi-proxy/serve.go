package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pichi-router/pichi-go/internal/config"
	"github.com/pichi-router/pichi-go/internal/logging"
	"github.com/pichi-router/pichi-go/internal/proxymgr"
)

// shutdownGrace bounds how long serve waits for in-flight accept loops
// to tear down after a signal.
const shutdownGrace = 10 * time.Second

func newServeCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the proxy node",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (default: search ./config.yaml, ./configs/config.yaml, /etc/pichi/config.yaml)")
	return cmd
}

func serve(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logging.New(cfg.Logger, os.Stdout)
	log.Info("starting pichi-proxy")

	mgrs := proxymgr.New(log, cfg.Route.Default, nil, nil)

	if err := bootstrap(mgrs, cfg); err != nil {
		return fmt.Errorf("failed to bootstrap configuration: %w", err)
	}

	log.Info("pichi-proxy ready",
		"ingresses", len(cfg.Ingresses),
		"egresses", len(cfg.Egresses),
		"rules", len(cfg.Rules),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down pichi-proxy")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	shutdown(ctx, log, mgrs, cfg)

	log.Info("pichi-proxy exited gracefully")
	return nil
}

// bootstrap feeds cfg's static ingress/egress/rule/route definitions into
// mgrs, in dependency order: egresses and rules before the route table
// that references them by name, and ingresses last since UpdateIngress
// immediately starts accepting connections.
//
// "direct" is always registered before user config is applied, so
// route.default can always resolve even when the config file declares no
// egresses at all.
func bootstrap(mgrs *proxymgr.Managers, cfg *config.Config) error {
	if err := mgrs.Egress.UpdateEgress(config.EgressVO{Name: "direct", Type: "direct"}); err != nil {
		return err
	}
	for _, vo := range cfg.Egresses {
		if err := mgrs.Egress.UpdateEgress(vo); err != nil {
			return fmt.Errorf("egress %q: %w", vo.Name, err)
		}
	}
	for _, vo := range cfg.Rules {
		if err := mgrs.Rules.UpdateRule(vo); err != nil {
			return fmt.Errorf("rule %q: %w", vo.Name, err)
		}
	}
	if err := mgrs.Rules.UpdateRoute(cfg.Route); err != nil {
		return fmt.Errorf("route: %w", err)
	}
	for _, vo := range cfg.Ingresses {
		if err := mgrs.Ingress.UpdateIngress(vo); err != nil {
			return fmt.Errorf("ingress %q: %w", vo.Name, err)
		}
	}
	return nil
}

// shutdown erases every configured ingress, which closes its listener and
// lets in-flight acceptLoop goroutines exit via the expected
// net.ErrClosed path. EraseIngress is synchronous, so ctx
// is only a belt-and-braces bound on how long this is allowed to take.
func shutdown(ctx context.Context, log *slog.Logger, mgrs *proxymgr.Managers, cfg *config.Config) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, vo := range cfg.Ingresses {
			if err := mgrs.Ingress.EraseIngress(vo.Name); err != nil {
				log.Warn("failed to erase ingress during shutdown", "ingress", vo.Name, "error", err)
			}
		}
	}()
	select {
	case <-done:
	case <-ctx.Done():
		log.Warn("shutdown grace period exceeded")
	}
}
