package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	challengeController "codearena/internal/challenge/controller"
	"codearena/internal/cli/state"
	"codearena/internal/judge/model"
)

// Registry returns all CLI commands keyed by name.
func Registry() map[string]Command {
	commands := []Command{
		{
			Name:    "list",
			Summary: "list challenges",
			Run:     runList,
		},
		{
			Name:    "show",
			Summary: "show a challenge and its visible tests",
			Fields: []Field{
				{Name: "id", Aliases: []string{"challenge", "challenge_id"}, Prompt: "challenge id", Required: true, Remember: lastChallenge},
			},
			Run: runShow,
		},
		{
			Name:    "starter",
			Summary: "print the starter code of a challenge",
			Fields: []Field{
				{Name: "id", Aliases: []string{"challenge", "challenge_id"}, Prompt: "challenge id", Required: true, Remember: lastChallenge},
			},
			Run: runStarter,
		},
		{
			Name:    "submit",
			Summary: "judge a JavaScript file against a challenge",
			Fields: []Field{
				{Name: "id", Aliases: []string{"challenge", "challenge_id"}, Prompt: "challenge id", Required: true, Remember: lastChallenge},
				{Name: "file", Aliases: []string{"source_file"}, Prompt: "source file", Required: true, Remember: lastFile},
				{Name: "format", Prompt: "format (text|json)"},
			},
			Run: runSubmit,
		},
	}

	out := make(map[string]Command, len(commands))
	for _, cmd := range commands {
		out[cmd.Name] = cmd
	}
	return out
}

// Names returns the command names in sorted order.
func Names(commands map[string]Command) []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lastChallenge(st *state.State) string { return st.LastChallenge }
func lastFile(st *state.State) string      { return st.LastFile }

func runList(ctx context.Context, env *Env, _ Params) error {
	list, err := env.Backend.List(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(env.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tDIFFICULTY\tCATEGORY\tPOINTS\tTESTS")
	for _, ch := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n", ch.ID, ch.Title, ch.Difficulty, ch.Category, ch.Points, ch.TestCount)
	}
	return w.Flush()
}

func runShow(ctx context.Context, env *Env, params Params) error {
	detail, err := env.Backend.Get(ctx, params.Get("id"))
	if err != nil {
		return err
	}
	env.State.LastChallenge = detail.ID
	fmt.Fprintf(env.Out, "%s. %s [%s, %d points]\n\n", detail.ID, detail.Title, detail.Difficulty, detail.Points)
	fmt.Fprintln(env.Out, strings.TrimSpace(detail.Description))
	fmt.Fprintln(env.Out)
	hidden := 0
	for _, tc := range detail.TestCases {
		if tc.Hidden {
			hidden++
			continue
		}
		fmt.Fprintf(env.Out, "  %s => %s\n", tc.Input, tc.ExpectedOutput)
	}
	if hidden > 0 {
		fmt.Fprintf(env.Out, "  (+%d hidden)\n", hidden)
	}
	return nil
}

func runStarter(ctx context.Context, env *Env, params Params) error {
	detail, err := env.Backend.Get(ctx, params.Get("id"))
	if err != nil {
		return err
	}
	env.State.LastChallenge = detail.ID
	fmt.Fprintln(env.Out, strings.TrimRight(detail.StarterCode, "\n"))
	return nil
}

func runSubmit(ctx context.Context, env *Env, params Params) error {
	path := params.Get("file")
	source, err := ReadFile(path)
	if err != nil {
		return err
	}
	id := params.Get("id")
	rep, err := env.Backend.Submit(ctx, id, source)
	if err != nil {
		return err
	}
	env.State.LastChallenge = id
	env.State.LastFile = path

	switch strings.ToLower(params.Get("format")) {
	case "json":
		if err := writeJSON(env, rep); err != nil {
			return err
		}
	case "", "text":
		RenderReport(env, rep)
	default:
		return fmt.Errorf("unknown format %q", params.Get("format"))
	}
	if !rep.AllPassed {
		return ErrNotAccepted
	}
	return nil
}

// ErrNotAccepted is returned by submit when the report is not all-passed.
var ErrNotAccepted = errors.New("submission not accepted")

// RenderReport prints rep as text.
func RenderReport(env *Env, rep model.SubmissionReport) {
	if rep.TerminalError != nil {
		fmt.Fprintf(env.Out, "%s: %s\n", rep.TerminalError.Type, rep.TerminalError.Message)
		fmt.Fprintf(env.Out, "0/%d passed\n", rep.TotalCount)
		return
	}
	for _, r := range rep.Results {
		mark := "FAIL"
		if r.Passed {
			mark = "PASS"
		}
		if r.Hidden {
			fmt.Fprintf(env.Out, "%s #%d (hidden)\n", mark, r.Index)
			continue
		}
		fmt.Fprintf(env.Out, "%s #%d %s\n", mark, r.Index, r.Invocation)
		if !r.Passed {
			fmt.Fprintf(env.Out, "     expected %s\n     got      %s\n", r.ExpectedOutput, r.ActualOutput)
		}
	}
	verdict := "not accepted"
	if rep.AllPassed {
		verdict = "accepted"
	}
	fmt.Fprintf(env.Out, "%d/%d passed, %s\n", rep.PassedCount, rep.TotalCount, verdict)
}

func writeJSON(env *Env, v interface{}) error {
	var (
		data []byte
		err  error
	)
	if env.PrettyJSON {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(env.Out, string(data))
	return err
}

// Summaries is used by completion.
func Summaries(ctx context.Context, env *Env) []challengeController.ChallengeSummary {
	list, err := env.Backend.List(ctx)
	if err != nil {
		return nil
	}
	return list
}
