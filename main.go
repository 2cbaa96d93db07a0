package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/metcalfc/tread/internal/config"
	"github.com/metcalfc/tread/internal/reader"
)

// Version info (injected via ldflags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// readOptions is everything a front end needs to open a reading session.
type readOptions struct {
	filename string
	fresh    bool
	settings config.Settings
}

func newRootCmd() *cobra.Command {
	settings := config.Load()
	var fresh bool

	root := &cobra.Command{
		Use:   "tread [file]",
		Short: "Resumable chapter-aware text reader",
		Long: fmt.Sprintf(`tread reads long plain-text documents of any encoding and remembers
where you stopped. Other supported formats: %s.

With no file, tread reads stdin, or reopens the most recently read book.`,
			strings.Join(reader.SupportedFormats(), ", ")),
		Example: `  tread novel.txt            Read a file, resuming where you left off
  tread --fresh novel.txt    Start from the beginning
  tread -s 1 book.epub       One blank line between paragraphs
  cat notes.txt | tread      Read from stdin
  tread toc novel.txt        Print the chapter index`,
		Args:          cobra.MaximumNArgs(1),
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := settings.Validate(); err != nil {
				return err
			}
			opts := readOptions{fresh: fresh, settings: settings}
			if len(args) > 0 {
				opts.filename = args[0]
			}
			return runReader(opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&settings.StateDir, "state-dir", settings.StateDir, "library directory (default $XDG_STATE_HOME/tread)")
	flags.StringVar(&settings.LogFile, "log-file", settings.LogFile, "write logs to this file")
	flags.BoolVar(&settings.Debug, "debug", settings.Debug, "log debug messages")

	root.Flags().Float64VarP(&settings.ParagraphSpacing, "spacing", "s", settings.ParagraphSpacing, "blank lines between paragraphs")
	root.Flags().BoolVar(&fresh, "fresh", false, "ignore saved reading position")

	root.AddCommand(tocCmd(), infoCmd(&settings), historyCmd(&settings))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
