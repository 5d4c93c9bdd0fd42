package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	goSession "github.com/MrEthical07/goSession"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type app struct {
	configPath string
	envFile    string
	sets       []string

	out    io.Writer
	errOut io.Writer

	cfg    fileConfig
	logger *zap.Logger
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "sessionctl",
		Short:         "sessionctl talks to a token-authenticated API through a goSession client",
		Long:          `sessionctl signs in, keeps the credential in a store, and issues requests that refresh an expired access token once and replay transparently.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file (.toml, .yaml or .yml)")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "Dotenv file loaded before reading SESSIONCTL_* variables")
	root.PersistentFlags().StringArrayVar(&a.sets, "set", nil, "Override a config key, e.g. --set store.backend=redis")

	root.AddCommand(
		newSignInCmd(a),
		newRequestCmd(a),
		newSignOutCmd(a),
		newWatchCmd(a),
	)
	return root
}

// load resolves config in order: defaults, file, environment, --set.
func (a *app) load() error {
	if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", a.envFile, err)
	}

	cfg, err := loadFileConfig(a.configPath)
	if err != nil {
		return err
	}
	if err := applyOverrides(&cfg, envOverrides()); err != nil {
		return err
	}
	sets, err := parseSetFlags(a.sets)
	if err != nil {
		return err
	}
	if err := applyOverrides(&cfg, sets); err != nil {
		return err
	}
	a.cfg = cfg

	if a.logger == nil {
		logger, err := newLogger(logConfigFromEnv())
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		a.logger = logger
	}
	return nil
}

// withClient builds a client over the configured store, attaches the CLI as its
// owner, and releases everything when fn returns.
func (a *app) withClient(ctx context.Context, fn func(context.Context, *goSession.Client) error) error {
	store, closeStore, err := openStore(ctx, a.cfg.Store, a.logger)
	if err != nil {
		return err
	}
	defer closeStore()

	b := goSession.New().
		WithConfig(a.cfg.clientConfig()).
		WithStore(store).
		WithLogger(a.logger)
	var audit *goSession.JSONWriterSink
	if a.cfg.Audit {
		audit = goSession.NewJSONWriterSink(a.errOut)
		b = b.WithAuditSink(audit)
	}
	client, err := b.Build()
	if err != nil {
		return err
	}
	defer func() {
		client.Close()
		if err := audit.Err(); err != nil {
			a.logger.Warn("audit output failed", zap.Error(err))
		}
	}()

	reg := client.Attach(
		func() { fmt.Fprintln(a.errOut, "session ended: sign in again") },
		func(string) { a.logger.Info("access token refreshed") },
	)
	defer reg.Detach()

	defer func() { _ = a.logger.Sync() }()
	return fn(ctx, client)
}
