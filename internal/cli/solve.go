package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/inkmath/equation-solver/internal/backend"
	"github.com/inkmath/equation-solver/internal/ocr"
	"github.com/inkmath/equation-solver/internal/session"
)

var (
	solveImage      string
	solveBackend    string
	solveStrategy   string
	solveTranscript bool
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Recognize and solve the equation in an image",
	Long:  "Preprocess an image, recognize it with the selected backend and print the solution",
	RunE:  runSolve,
}

func init() {
	RootCmd.AddCommand(solveCmd)
	solveCmd.Flags().StringVar(&solveImage, "image", "", "Path to the image (PNG, JPEG or GIF)")
	solveCmd.Flags().StringVar(&solveBackend, "backend", "", "Recognition backend: ocr, gemini, openai, ollama or ai")
	solveCmd.Flags().StringVar(&solveStrategy, "strategy", "", "Preprocessing strategy: otsu or invert")
	solveCmd.Flags().BoolVar(&solveTranscript, "transcript", false, "Print the attempt transcript")
	solveCmd.MarkFlagRequired("image")
}

func runSolve(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(solveImage)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	img, err := ocr.DecodeImage(data)
	if err != nil {
		return err
	}

	cfg := *config
	if solveStrategy != "" {
		cfg.Preprocess.Strategy = solveStrategy
	}
	b, err := backend.New(&cfg, solveBackend)
	if err != nil {
		return err
	}
	pipeline, err := session.NewPipeline(&cfg, b)
	if err != nil {
		return err
	}

	st, err := session.SolveImage(context.Background(), pipeline, img)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if solveTranscript {
		for _, line := range st.Transcript {
			fmt.Fprintln(out, line)
		}
	}
	if st.Phase != session.Done {
		return fmt.Errorf("%s", st.Message)
	}
	if st.Expression != "" {
		fmt.Fprintf(out, "expression: %s\n", st.Expression)
	}
	if st.Result != nil {
		fmt.Fprintf(out, "result:     %s\n", st.Result.String())
	}
	fmt.Fprintf(out, "latex:      %s\n", st.Solution)
	return nil
}
