package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/ratel-lang/ratel"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runREPL()
	},
}

const (
	prompt     = "> "
	contPrompt = "… "
)

func runREPL() error {
	s, err := settingsFromConfig()
	if err != nil {
		return err
	}
	ctx := newSession(s)
	cache := ratel.NewProgramCache(ratel.CacheConfig{})

	rl := liner.NewLiner()
	defer rl.Close()
	rl.SetCtrlCAborts(true)
	rl.SetCompleter(func(line string) []string { return completeNames(line, ctx) })

	histFile := historyPath()
	if histFile != "" {
		if f, err := os.Open(histFile); err == nil {
			rl.ReadHistory(f)
			f.Close()
		}
	}
	defer saveHistory(rl, histFile)

	fmt.Println("ratel — exact-arithmetic calculator (ctrl-d to quit)")
	var pending string
	for {
		p := prompt
		if pending != "" {
			p = contPrompt
		}
		line, err := rl.Prompt(p)
		if err != nil {
			if err == liner.ErrPromptAborted {
				pending = ""
				continue
			}
			if err == io.EOF {
				fmt.Println()
				return nil
			}
			return err
		}
		src := strings.TrimSpace(pending + line)
		if src == "" {
			continue
		}
		prog, err := cache.Compile(src, s)
		if err != nil {
			// An expression cut off mid-token continues on the next line.
			if incomplete(err) {
				pending = src + " "
				continue
			}
			pending = ""
			fmt.Println(ratel.Report(err, src))
			continue
		}
		pending = ""
		rl.AppendHistory(src)
		v, err := prog.Evaluate(ctx)
		if err != nil {
			fmt.Println(ratel.Report(err, src))
			continue
		}
		fmt.Println(ratel.Format(v, s))
	}
}

// incomplete reports whether a parse error means the input just ended too
// early, so the session should read a continuation line.
func incomplete(err error) bool {
	var pe *ratel.ParseError
	return errors.As(err, &pe) && strings.Contains(pe.Msg, "unexpected end of expression")
}

func completeNames(line string, ctx *ratel.Context) []string {
	i := len(line)
	for i > 0 {
		c := line[i-1]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' {
			i--
			continue
		}
		break
	}
	head, word := line[:i], line[i:]
	if word == "" {
		return nil
	}
	var out []string
	for _, name := range ctx.Names() {
		if strings.HasPrefix(name, word) {
			out = append(out, head+name)
		}
	}
	return out
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	dir := filepath.Join(home, ".config", "ratel")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ""
	}
	return filepath.Join(dir, "history")
}

func saveHistory(rl *liner.State, path string) {
	if path == "" {
		return
	}
	f, err := os.Create(path)
	if err != nil {
		log.WithError(err).Debug("cannot save history")
		return
	}
	defer f.Close()
	rl.WriteHistory(f)
}
