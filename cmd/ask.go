package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vidqa/vidqa/core/engine"
)

var (
	askLang   string
	askMethod string
)

var askCmd = &cobra.Command{
	Use:   "ask <video-id> <question...>",
	Short: "Ask a question about a processed video",
	Long: `Ask retrieves the most relevant transcript passages for the
question and generates an answer from them. Repeated or similar questions
are answered from the response cache.

Examples:
  vidqa ask dQw4w9WgXcQ what is the main topic
  vidqa ask dQw4w9WgXcQ --lang es de que trata el video
  vidqa ask dQw4w9WgXcQ --method keyword exact phrase lookup`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askLang, "lang", "l", "en", "Answer language (en, ar, es, it, sv)")
	askCmd.Flags().StringVarP(&askMethod, "method", "m", "hybrid", "Search method (hybrid, vector, keyword)")
}

func parseSearchMethod(s string) (engine.SearchMethod, error) {
	switch engine.SearchMethod(s) {
	case engine.SearchHybrid, engine.SearchVector, engine.SearchKeyword:
		return engine.SearchMethod(s), nil
	default:
		return "", fmt.Errorf("invalid search method: %s", s)
	}
}

func runAsk(cmd *cobra.Command, args []string) error {
	videoID := args[0]
	question := strings.Join(args[1:], " ")

	method, err := parseSearchMethod(askMethod)
	if err != nil {
		return err
	}

	a, err := newApp(cfgManager.Get())
	if err != nil {
		return err
	}
	defer a.close()

	answer, err := a.engine.Ask(cmd.Context(), videoID, question, askLang, method)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), answer)
	return nil
}
