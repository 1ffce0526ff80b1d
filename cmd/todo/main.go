package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/idilsaglam/checklist/internal/auth"
	"github.com/idilsaglam/checklist/internal/cache"
	"github.com/idilsaglam/checklist/internal/cli"
	"github.com/idilsaglam/checklist/internal/config"
	"github.com/idilsaglam/checklist/internal/graphql"
	"github.com/idilsaglam/checklist/internal/logging"
	"github.com/idilsaglam/checklist/internal/store/gqlstore"
	"github.com/idilsaglam/checklist/internal/tui"
	"github.com/idilsaglam/checklist/internal/ui"
)

type flags struct {
	group    bool
	yes      bool
	config   string
	endpoint string
	theme    string
	logLevel string
}

func main() {
	// Root flags (apply to every subcommand)
	var f flags
	flag.BoolVar(&f.group, "group", false, "group print output by pending/done")
	flag.BoolVar(&f.yes, "y", false, "delete without asking for confirmation")
	flag.StringVar(&f.config, "config", "", "config file (default ~/.tada/config.yaml)")
	flag.StringVar(&f.endpoint, "endpoint", "", "GraphQL endpoint URL")
	flag.StringVar(&f.theme, "theme", "", "classic | neon | mono")
	flag.StringVar(&f.logLevel, "log-level", "", "debug | info | warn | error")
	flag.Parse()

	// Hand the remaining args to the CLI runner.
	args := flag.Args()
	if len(args) == 0 {
		cli.PrintHelp(os.Stdout)
		os.Exit(2)
	}

	code := run(args, f)
	if code != 0 {
		fmt.Fprintln(os.Stderr)
	}
	os.Exit(code)
}

func run(args []string, f flags) int {
	if err := config.LoadDotEnv(); err != nil {
		ui.Fail(os.Stderr, err.Error())
		return 1
	}
	dir, err := config.Dir()
	if err != nil {
		ui.Fail(os.Stderr, err.Error())
		return 1
	}
	cfg, err := config.Load(dir, f.config, f.config != "", os.LookupEnv)
	if err != nil {
		ui.Fail(os.Stderr, "config: "+err.Error())
		return 2
	}
	if f.endpoint != "" {
		cfg.Endpoint = f.endpoint
	}
	if f.theme != "" {
		cfg.Theme = f.theme
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	if err := cfg.Validate(); err != nil {
		ui.Fail(os.Stderr, "config: "+err.Error())
		return 2
	}
	ui.SetTheme(cfg.Theme)

	logger, closer, err := logging.New(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		ui.Fail(os.Stderr, err.Error())
		return 1
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokens := auth.NewStore(dir, nil)
	env := cli.Env{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Tokens: tokens,
		Connect: func() (cli.Store, error) {
			return connect(cfg, tokens, logger)
		},
		Interactive: func(ctx context.Context, s cli.Store) error {
			return tui.Run(ctx, s, logger)
		},
	}
	return cli.Run(ctx, args, cli.Options{Group: f.group, Yes: f.yes}, env)
}

func connect(cfg config.Config, tokens *auth.Store, logger *log.Logger) (cli.Store, error) {
	opts := []graphql.Option{
		graphql.WithAdminSecret(cfg.AdminSecret),
		graphql.WithRole(cfg.Role),
		graphql.WithRetryMax(cfg.RetryMax),
		graphql.WithTimeout(cfg.Timeout),
		graphql.WithLogger(logger),
	}
	ti, err := tokens.Get()
	if err != nil {
		return nil, err
	}
	if ti != nil {
		if ti.Expired(time.Now()) {
			logger.WithField("expires_at", ti.ExpiresAt).Warn("token expired; requests will likely be rejected")
		}
		opts = append(opts, graphql.WithBearerToken(ti.Token))
	}
	client, err := graphql.NewClient(cfg.Endpoint, opts...)
	if err != nil {
		return nil, err
	}
	logger.WithField("endpoint", cfg.Endpoint).Debug("connected")
	return gqlstore.New(client, cache.New(), logger), nil
}
