package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/maloquacious/semver"
	"github.com/maloquacious/tokenstore/internal/config"
	"github.com/maloquacious/tokenstore/internal/logger"
	"github.com/maloquacious/tokenstore/internal/store"
	"github.com/maloquacious/tokenstore/internal/store/postgres"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version   = semver.Version{Minor: 1, PreRelease: "alpha", Build: semver.Commit()}
	buildDate = ""
)

var (
	envFile   string
	timeout   time.Duration
	forceDrop bool
)

func main() {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:           "tokenstore",
		Short:         "Token database schema bootstrap and maintenance",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&envFile, "env-file", ".env", "optional dotenv file with POSTGRES_* settings")
	pf.DurationVar(&timeout, "timeout", 2*time.Minute, "upper bound for the whole command")
	pf.String("host", "", "database host (POSTGRES_HOST)")
	pf.Int("port", 0, "database port (POSTGRES_PORT)")
	pf.String("user", "", "database role (POSTGRES_USER)")
	pf.String("dbname", "", "database name (POSTGRES_DB)")
	pf.String("sslmode", "", "libpq sslmode (POSTGRES_SSLMODE)")
	pf.String("log-level", "", "trace, debug, info, warn or error (LOG_LEVEL)")
	for flag, key := range map[string]string{
		"host":      config.KeyHost,
		"port":      config.KeyPort,
		"user":      config.KeyUser,
		"dbname":    config.KeyDatabase,
		"sslmode":   config.KeySSLMode,
		"log-level": config.KeyLogLevel,
	} {
		_ = v.BindPFlag(key, pf.Lookup(flag))
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the tool version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
			if buildDate != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "built %s\n", buildDate)
			}
		},
	}

	// db command group
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database schema commands",
	}

	dbCreateCmd := &cobra.Command{
		Use:   "create",
		Short: "Create missing tables, remove the legacy trigger and add late columns",
		RunE:  withStore(v, runDBCreate),
	}
	dbUpgradeCmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Add tokens columns missing from older deployments",
		RunE:  withStore(v, runDBUpgrade),
	}
	dbVerifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify schema integrity; prints a JSON summary",
		RunE:  withStore(v, runDBVerify),
	}
	dbRemoveTriggerCmd := &cobra.Command{
		Use:   "remove-trigger",
		Short: "Drop the legacy updated_at trigger and its function",
		RunE:  withStore(v, runDBRemoveTrigger),
	}
	dbDropCmd := &cobra.Command{
		Use:   "drop",
		Short: "Drop both tables and the legacy function (destructive)",
		RunE:  withStore(v, runDBDrop),
	}
	dbDropCmd.Flags().BoolVar(&forceDrop, "force", false, "confirm that all token data may be destroyed")

	dbCmd.AddCommand(dbCreateCmd, dbUpgradeCmd, dbVerifyCmd, dbRemoveTriggerCmd, dbDropCmd)
	rootCmd.AddCommand(versionCmd, dbCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type storeFunc func(ctx context.Context, cmd *cobra.Command, s store.Store, log logger.Logger) error

// withStore loads configuration, opens the store for the duration of fn and
// bounds everything by --timeout and SIGINT.
func withStore(v *viper.Viper, fn storeFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(v, envFile)
		if err != nil {
			return err
		}
		log, err := logger.New(os.Stderr, cfg.LogLevel)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		s := postgres.New(cfg, log.With("db", cfg.Database))
		if err := s.Open(ctx); err != nil {
			return err
		}
		defer s.Close()

		return fn(ctx, cmd, s, log)
	}
}

func runDBCreate(ctx context.Context, cmd *cobra.Command, s store.Store, log logger.Logger) error {
	if err := s.Migrate(ctx); err != nil {
		return fmt.Errorf("db create: %w", err)
	}
	state, err := s.CheckState(ctx)
	if err != nil {
		return err
	}
	log.Info("schema state: %s", state)
	return nil
}

func runDBUpgrade(ctx context.Context, cmd *cobra.Command, s store.Store, log logger.Logger) error {
	r, err := s.Inspect(ctx)
	if err != nil {
		return err
	}
	// The patcher only touches tokens; sync_status may still be missing.
	if !r.TokensTable {
		return errors.New("db upgrade: tokens table missing, run db create first")
	}
	if err := s.AddNewFieldsIfNotExist(ctx); err != nil {
		return fmt.Errorf("db upgrade: %w", err)
	}
	return nil
}

func runDBVerify(ctx context.Context, cmd *cobra.Command, s store.Store, log logger.Logger) error {
	r, err := s.Inspect(ctx)
	if err != nil {
		return err
	}
	summary := struct {
		Version string `json:"version"`
		State   string `json:"state"`
		store.Report
	}{
		Version: version.String(),
		State:   r.State().String(),
		Report:  r,
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return err
	}
	if !r.Healthy() {
		return fmt.Errorf("db verify: schema is %s, legacy trigger=%t function=%t",
			r.State(), r.LegacyTrigger, r.LegacyFunction)
	}
	return nil
}

func runDBRemoveTrigger(ctx context.Context, cmd *cobra.Command, s store.Store, log logger.Logger) error {
	return s.RemoveUpdatedAtTrigger(ctx)
}

func runDBDrop(ctx context.Context, cmd *cobra.Command, s store.Store, log logger.Logger) error {
	if !forceDrop {
		return errors.New("db drop: refusing to drop tables without --force")
	}
	if err := s.DropTables(ctx); err != nil {
		return fmt.Errorf("db drop: %w", err)
	}
	log.Warn("dropped %s and %s", postgres.SyncStatusTable, postgres.TokensTable)
	return nil
}
