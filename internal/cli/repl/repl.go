package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"codearena/internal/cli/command"
	httpclient "codearena/internal/cli/http"
	"codearena/internal/cli/state"

	"github.com/chzyer/readline"
	"github.com/google/shlex"
)

const prompt = "judgectl> "

// Session holds REPL state.
type Session struct {
	commands  map[string]command.Command
	env       *command.Env
	client    *httpclient.Client
	statePath string
	// ask reads a missing field. Nil means missing fields are errors.
	ask func(label string) (string, error)
}

// New creates a session. client is nil in local mode.
func New(commands map[string]command.Command, env *command.Env, client *httpclient.Client, statePath string) *Session {
	return &Session{
		commands:  commands,
		env:       env,
		client:    client,
		statePath: statePath,
	}
}

// Run reads commands until exit or EOF.
func (s *Session) Run(ctx context.Context, historyFile string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            prompt,
		HistoryFile:       historyFile,
		AutoComplete:      s.completer(ctx),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("init readline failed: %w", err)
	}
	defer func() { _ = rl.Close() }()

	s.env.Out = rl.Stdout()
	s.ask = func(label string) (string, error) {
		rl.SetPrompt(label + ": ")
		defer rl.SetPrompt(prompt)
		line, err := rl.Readline()
		if err != nil {
			return "", fmt.Errorf("read input failed: %w", err)
		}
		return strings.TrimSpace(line), nil
	}

	s.printLine("codearena judge (%s). Type help for commands.", s.env.Backend.Name())
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input failed: %w", err)
		}
		quit, err := s.Execute(ctx, line)
		if err != nil && !errors.Is(err, command.ErrNotAccepted) {
			s.printLine("error: %v", err)
		}
		if quit {
			s.printLine("bye")
			return nil
		}
	}
}

// Execute runs one input line.
func (s *Session) Execute(ctx context.Context, line string) (quit bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	tokens, err := shlex.Split(line)
	if err != nil {
		return false, fmt.Errorf("parse command failed: %w", err)
	}
	if len(tokens) == 0 {
		return false, nil
	}
	switch tokens[0] {
	case "exit", "quit":
		return true, nil
	case "help":
		s.printHelp()
		return false, nil
	case "set":
		return false, s.handleSet(tokens[1:])
	case "status":
		s.printStatus()
		return false, nil
	}

	cmd, ok := s.commands[tokens[0]]
	if !ok {
		return false, fmt.Errorf("unknown command: %s", tokens[0])
	}
	params, err := command.Bind(cmd, tokens[1:])
	if err != nil {
		return false, err
	}
	if err := s.promptMissing(cmd, params); err != nil {
		return false, err
	}
	runErr := cmd.Run(ctx, s.env, params)
	if err := state.Save(s.statePath, *s.env.State); err != nil {
		s.printLine("save state failed: %v", err)
	}
	return false, runErr
}

func (s *Session) promptMissing(cmd command.Command, params command.Params) error {
	for _, field := range command.Missing(cmd, params, s.env.State) {
		if s.ask == nil {
			return fmt.Errorf("%s is required, usage: %s", field.Name, cmd.Usage())
		}
		value, err := s.ask(field.Prompt)
		if err != nil {
			return err
		}
		if value == "" {
			return fmt.Errorf("%s is required", field.Name)
		}
		params.Set(field.Name, value)
	}
	return nil
}

func (s *Session) handleSet(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: set base|timeout|token <value>")
	}
	if s.client == nil && args[0] != "token" {
		return fmt.Errorf("set %s requires remote mode", args[0])
	}
	switch args[0] {
	case "base":
		s.client.SetBaseURL(args[1])
		s.printLine("base set to %s", args[1])
	case "timeout":
		dur, err := time.ParseDuration(args[1])
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		s.client.SetTimeout(dur)
		s.printLine("timeout set to %s", dur)
	case "token":
		s.env.State.AccessToken = args[1]
		if err := state.Save(s.statePath, *s.env.State); err != nil {
			return fmt.Errorf("save token failed: %w", err)
		}
		s.printLine("token updated")
	default:
		return fmt.Errorf("unknown set command %q", args[0])
	}
	return nil
}

func (s *Session) printStatus() {
	s.printLine("backend: %s", s.env.Backend.Name())
	s.printLine("state: %s", s.statePath)
	token := s.env.State.AccessToken
	switch {
	case token == "":
		token = "<empty>"
	case len(token) > 12:
		token = token[:6] + "..." + token[len(token)-4:]
	}
	s.printLine("token: %s", token)
	if s.env.State.LastChallenge != "" {
		s.printLine("last: challenge %s, file %s", s.env.State.LastChallenge, s.env.State.LastFile)
	}
}

func (s *Session) printHelp() {
	for _, name := range command.Names(s.commands) {
		cmd := s.commands[name]
		s.printLine("  %-32s %s", cmd.Usage(), cmd.Summary)
	}
	s.printLine("system: help | exit | status | set base|timeout|token <value>")
	s.printLine("examples:")
	s.printLine("  show 1")
	s.printLine("  submit 1 ./two_sum.js")
	s.printLine("  submit id=3 file=merge.js format=json")
}

func (s *Session) completer(ctx context.Context) readline.AutoCompleter {
	ids := func(string) []string {
		var out []string
		for _, ch := range command.Summaries(ctx, s.env) {
			out = append(out, ch.ID)
		}
		return out
	}
	items := []readline.PrefixCompleterInterface{
		readline.PcItem("help"),
		readline.PcItem("exit"),
		readline.PcItem("status"),
		readline.PcItem("set", readline.PcItem("base"), readline.PcItem("timeout"), readline.PcItem("token")),
	}
	for _, name := range command.Names(s.commands) {
		if len(s.commands[name].Fields) == 0 {
			items = append(items, readline.PcItem(name))
			continue
		}
		items = append(items, readline.PcItem(name, readline.PcItemDynamic(ids)))
	}
	return readline.NewPrefixCompleter(items...)
}

func (s *Session) printLine(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.env.Out, format+"\n", args...)
}
