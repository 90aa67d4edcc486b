package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var processForce bool

var processCmd = &cobra.Command{
	Use:   "process <video-id> [transcript-file]",
	Short: "Index a video transcript for question answering",
	Long: `Process chunks a transcript, embeds the chunks, and builds the
retrieval indexes for the video. The transcript is read from the given file,
or from stdin when no file is supplied.

Examples:
  vidqa process dQw4w9WgXcQ transcript.txt
  cat transcript.txt | vidqa process dQw4w9WgXcQ
  vidqa process dQw4w9WgXcQ transcript.txt --force`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)
	processCmd.Flags().BoolVarP(&processForce, "force", "f", false, "Re-process even if the video was processed before")
}

func runProcess(cmd *cobra.Command, args []string) error {
	videoID := args[0]

	var transcript []byte
	var err error
	if len(args) == 2 {
		transcript, err = os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("read transcript: %w", err)
		}
	} else {
		transcript, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read transcript from stdin: %w", err)
		}
	}

	a, err := newApp(cfgManager.Get())
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.engine.ProcessTranscript(cmd.Context(), videoID, string(transcript), processForce); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "processed %s\n", videoID)
	return nil
}
