package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	summarizeLength string
	summarizeLang   string
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize <video-id>",
	Short: "Summarize a processed video",
	Long: `Summarize retrieves passages from across the transcript and
generates a summary at the requested length. Summaries are cached alongside
answers.

Examples:
  vidqa summarize dQw4w9WgXcQ
  vidqa summarize dQw4w9WgXcQ --length long --lang it`,
	Args: cobra.ExactArgs(1),
	RunE: runSummarize,
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
	summarizeCmd.Flags().StringVar(&summarizeLength, "length", "medium", "Summary length (short, medium, long)")
	summarizeCmd.Flags().StringVarP(&summarizeLang, "lang", "l", "en", "Summary language (en, ar, es, it, sv)")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	switch summarizeLength {
	case "short", "medium", "long":
	default:
		return fmt.Errorf("invalid summary length: %s", summarizeLength)
	}

	a, err := newApp(cfgManager.Get())
	if err != nil {
		return err
	}
	defer a.close()

	summary, err := a.engine.Summarize(cmd.Context(), args[0], summarizeLength, summarizeLang)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), summary)
	return nil
}
