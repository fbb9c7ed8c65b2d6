package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ratel-lang/ratel"
)

var evalCmd = &cobra.Command{
	Use:   "eval [expression...]",
	Short: "Evaluate expressions and print their results",
	Long: `Evaluate each argument as an expression. With no arguments, expressions
are read from stdin one per line. All expressions share one session, so
assignments carry forward:

  ratel eval "x := 3" "x^2 + 1"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settingsFromConfig()
		if err != nil {
			return err
		}
		ctx := newSession(s)
		cache := ratel.NewProgramCache(ratel.CacheConfig{})
		if len(args) == 0 {
			return evalFrom(ctx, cache, s)
		}
		for _, arg := range args {
			if err := evalOne(arg, ctx, cache, s); err != nil {
				return err
			}
		}
		return nil
	},
}

func evalFrom(ctx *ratel.Context, cache *ratel.ProgramCache, s *ratel.Settings) error {
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if err := evalOne(line, ctx, cache, s); err != nil {
			fmt.Fprintln(os.Stderr, ratel.Report(err, line))
		}
	}
	return sc.Err()
}

func evalOne(src string, ctx *ratel.Context, cache *ratel.ProgramCache, s *ratel.Settings) error {
	prog, err := cache.Compile(src, s)
	if err != nil {
		return reportErr(err, src)
	}
	v, err := prog.Evaluate(ctx)
	if err != nil {
		return reportErr(err, src)
	}
	fmt.Println(ratel.Format(v, s))
	return nil
}

// reportErr wraps an engine error with its caret-annotated source snippet.
func reportErr(err error, src string) error {
	var pe ratel.PosError
	if errors.As(err, &pe) {
		return errors.New(ratel.Report(err, src))
	}
	return err
}
