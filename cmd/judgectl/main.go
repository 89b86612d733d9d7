package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"codearena/internal/challenge/catalog"
	"codearena/internal/cli/backend"
	"codearena/internal/cli/command"
	"codearena/internal/cli/config"
	httpclient "codearena/internal/cli/http"
	"codearena/internal/cli/repl"
	"codearena/internal/cli/state"
	"codearena/internal/judge/sandbox"
	"codearena/internal/judge/service"
	"codearena/pkg/utils/logger"
)

const defaultConfigPath = "configs/judgectl.yaml"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	mode := flag.String("mode", "", "Override mode: local or remote")
	baseURL := flag.String("base", "", "Override judge-service base URL (remote mode)")
	catalogPath := flag.String("catalog", "", "Override challenge catalog file (local mode)")
	token := flag.String("token", "", "Override access token (remote mode)")
	statePath := flag.String("state", "", "Override state path")
	challengeID := flag.String("challenge", "", "Challenge id to submit against and exit")
	sourceFile := flag.String("file", "", "Source file to submit with -challenge")
	list := flag.Bool("list", false, "List challenges and exit")
	asJSON := flag.Bool("json", false, "Print the submission report as JSON")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		return 2
	}
	if *mode != "" {
		cfg.Mode = *mode
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
		if *mode == "" {
			cfg.Mode = config.ModeRemote
		}
	}
	if *catalogPath != "" {
		cfg.CatalogPath = *catalogPath
	}
	if *statePath != "" {
		cfg.StatePath = *statePath
	}

	if err := logger.Init(cfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return 2
	}
	defer func() {
		_ = logger.Sync()
	}()

	st, err := state.Load(cfg.StatePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load state failed: %v\n", err)
		return 2
	}
	if *token != "" {
		st.AccessToken = *token
	}

	var (
		b      backend.Backend
		client *httpclient.Client
	)
	switch cfg.Mode {
	case config.ModeRemote:
		client = httpclient.New(cfg.BaseURL, cfg.Timeout, func() string { return st.AccessToken })
		b = backend.NewRemote(client)
	case config.ModeLocal:
		b, err = newLocalBackend(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "init local judge failed: %v\n", err)
			return 2
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", cfg.Mode)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env := &command.Env{Backend: b, Out: os.Stdout, State: &st, PrettyJSON: *cfg.PrettyJSON}
	session := repl.New(command.Registry(), env, client, cfg.StatePath)

	switch {
	case *list:
		return exitCode(session.Execute(ctx, "list"))
	case *challengeID != "" || *sourceFile != "":
		if *challengeID == "" || *sourceFile == "" {
			fmt.Fprintln(os.Stderr, "-challenge and -file must be given together")
			return 2
		}
		line := fmt.Sprintf("submit id=%q file=%q", *challengeID, *sourceFile)
		if *asJSON {
			line += " format=json"
		}
		return exitCode(session.Execute(ctx, line))
	}

	if err := session.Run(ctx, cfg.HistoryFile); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	return 0
}

func newLocalBackend(cfg config.Config) (*backend.Local, error) {
	var (
		c   *catalog.Catalog
		err error
	)
	if cfg.CatalogPath != "" {
		c, err = catalog.LoadFile(cfg.CatalogPath)
	} else {
		c, err = catalog.Default()
	}
	if err != nil {
		return nil, err
	}
	judge, err := service.NewService(service.Config{
		Runner:            sandbox.New(sandbox.DefaultConfig()),
		Loader:            sandbox.Loader{},
		Challenges:        c,
		TestTimeout:       cfg.TestTimeout,
		SubmissionTimeout: cfg.SubmissionTimeout,
	})
	if err != nil {
		return nil, err
	}
	return backend.NewLocal(c, judge), nil
}

// exitCode maps a one-shot command result: 0 accepted, 1 not accepted,
// 2 for any other failure.
func exitCode(_ bool, err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, command.ErrNotAccepted):
		return 1
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
}
