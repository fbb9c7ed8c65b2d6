package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ratel-lang/ratel"
)

var diffCmd = &cobra.Command{
	Use:   "diff <expression> [variable]",
	Short: "Differentiate an expression symbolically",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settingsFromConfig()
		if err != nil {
			return err
		}
		v := "x"
		if len(args) == 2 {
			v = args[1]
		}
		out, err := ratel.DifferentiateString(args[0], v, s)
		if err != nil {
			return reportErr(err, args[0])
		}
		fmt.Println(out)
		return nil
	},
}

var integrateCmd = &cobra.Command{
	Use:   "integrate <expression> [variable]",
	Short: "Integrate an expression symbolically",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settingsFromConfig()
		if err != nil {
			return err
		}
		v := "x"
		if len(args) == 2 {
			v = args[1]
		}
		out, err := ratel.IntegrateString(args[0], v, s)
		if err != nil {
			return reportErr(err, args[0])
		}
		fmt.Println(out)
		return nil
	},
}
