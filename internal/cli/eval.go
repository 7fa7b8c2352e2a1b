package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inkmath/equation-solver/internal/normalize"
	"github.com/inkmath/equation-solver/internal/solver"
	"github.com/inkmath/equation-solver/internal/typeset"
)

var (
	evalNormalize bool
	evalLatex     bool
)

var evalCmd = &cobra.Command{
	Use:   "eval EXPR",
	Short: "Solve a typed expression or equation",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runEval,
}

func init() {
	RootCmd.AddCommand(evalCmd)
	evalCmd.Flags().BoolVar(&evalNormalize, "normalize", false, "Normalize the input first")
	evalCmd.Flags().BoolVar(&evalLatex, "latex", false, "Print the result as LaTeX")
}

func runEval(cmd *cobra.Command, args []string) error {
	expr := strings.Join(args, " ")
	if evalNormalize {
		expr = normalize.New(normalize.Policy{
			EquationAware:      config.Normalize.EquationAware,
			SplitFunctionNames: config.Normalize.SplitFunctionNames,
		}).Normalize(expr)
	}

	result := solver.New(config.Solver).Solve(expr)
	if err := result.Err(); err != nil {
		return err
	}
	if evalLatex {
		fmt.Fprintln(cmd.OutOrStdout(), typeset.ResultTeX(result))
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), result.String())
	return nil
}
