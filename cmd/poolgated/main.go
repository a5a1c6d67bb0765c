// main.go - Entry point for the proof gateway daemon
package main

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"poolgate/internal/gateway"
	"poolgate/internal/verifier"
)

var (
	fConfigPath string
)

var rootCmd = &cobra.Command{
	Use:   "poolgated",
	Short: "proof verification gateway for privacy pool withdrawals",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run the HTTP gateway",
	RunE:  runServe,
}

var checkConfigCmd = &cobra.Command{
	Use:   "check-config",
	Short: "load and validate the configuration, then exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(fConfigPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "configuration %s is valid\n", fConfigPath)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&fConfigPath, "config", "poolgated.json", "path to the configuration file")
	rootCmd.AddCommand(serveCmd, checkConfigCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig(fConfigPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, logCloser, err := NewLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	if logCloser != nil {
		defer logCloser.Close()
	}

	audit, auditCloser, err := NewAuditLogger(cfg.AuditLogPath, log)
	if err != nil {
		return err
	}
	if auditCloser != nil {
		defer auditCloser.Close()
	}

	pred, err := buildPredicate(cfg)
	if err != nil {
		return err
	}

	engine, err := verifier.NewEngine(cfg.VerifierConfig(), pred, log)
	if err != nil {
		return err
	}

	roots, err := verifier.NewRootHistory(cfg.RootCapacity)
	if err != nil {
		return err
	}

	guard, err := verifier.NewWithdrawalGuard(engine, roots, audit)
	if err != nil {
		return err
	}
	for _, raw := range cfg.InitialRoots {
		root, ok := new(big.Int).SetString(raw, 10)
		if !ok {
			return fmt.Errorf("initial root %q is not a decimal field element", raw)
		}
		if err := guard.AppendRoot(root); err != nil {
			return fmt.Errorf("initial root %q: %w", raw, err)
		}
	}

	ext, err := verifier.NewExtendedVerifier(engine, verifier.ExtensionConfig{
		AppKey:              cfg.ExtensionAppKey,
		ActivationThreshold: cfg.ExtensionThreshold,
	}, log)
	if err != nil {
		return err
	}

	srv, err := gateway.NewServer(&gateway.Config{
		ListenAddr: cfg.ListenAddr,
		AdminToken: cfg.AdminToken,
		CacheSize:  cfg.CacheSize,
	}, engine, guard, ext, log)
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", cfg.ListenAddr).
			Str("format", cfg.ProofFormat).
			Int("root_capacity", cfg.RootCapacity).
			Msg("gateway listening")
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func buildPredicate(cfg *Config) (verifier.Predicate, error) {
	switch cfg.ProofFormat {
	case verifier.FormatChecksum:
		return verifier.ChecksumPredicate{}, nil
	case verifier.FormatGroth16:
		vk, err := verifier.LoadGroth16VerifyingKey(cfg.VerifyingKeyPath)
		if err != nil {
			return nil, fmt.Errorf("loading verifying key: %w", err)
		}
		return verifier.NewGroth16Predicate(vk)
	default:
		return nil, fmt.Errorf("unknown proof format %q", cfg.ProofFormat)
	}
}
