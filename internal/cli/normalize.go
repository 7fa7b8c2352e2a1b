package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inkmath/equation-solver/internal/normalize"
)

var (
	normalizeTrace bool
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize TEXT",
	Short: "Rewrite raw OCR text into a solvable expression",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runNormalize,
}

func init() {
	RootCmd.AddCommand(normalizeCmd)
	normalizeCmd.Flags().BoolVar(&normalizeTrace, "trace", false, "Show the text after every rule that changed it")
}

func runNormalize(cmd *cobra.Command, args []string) error {
	n := normalize.New(normalize.Policy{
		EquationAware:      config.Normalize.EquationAware,
		SplitFunctionNames: config.Normalize.SplitFunctionNames,
	})
	text := strings.Join(args, " ")
	out := cmd.OutOrStdout()

	if !normalizeTrace {
		fmt.Fprintln(out, n.Normalize(text))
		return nil
	}
	result, steps := n.Trace(text)
	for _, s := range steps {
		fmt.Fprintf(out, "%-22s %s\n", s.Rule, s.Text)
	}
	fmt.Fprintln(out, result)
	return nil
}
