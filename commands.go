package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/metcalfc/tread/internal/config"
	"github.com/metcalfc/tread/internal/state"
)

func tocCmd() *cobra.Command {
	var grep string
	cmd := &cobra.Command{
		Use:   "toc FILE",
		Short: "Print the chapter index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := openDocument(args[0], nil)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, ch := range doc.Chapters.Filter(grep) {
				fmt.Fprintf(out, "%4d. %s (line %d)\n", ch.Index+1, ch.Title, ch.StartLine+1)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&grep, "grep", "g", "", "only chapters whose title contains this text")
	return cmd
}

func infoCmd(settings *config.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "info FILE",
		Short: "Show encoding, size and saved position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closeLog, err := newLogger(*settings)
			if err != nil {
				return err
			}
			defer closeLog()

			doc, err := openDocument(args[0], nil)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Title:    %s\n", doc.Title)
			fmt.Fprintf(out, "Encoding: %s\n", doc.Encoding)
			fmt.Fprintf(out, "Lines:    %d\n", doc.LineCount())
			fmt.Fprintf(out, "Chapters: %d\n", doc.Chapters.Len())

			lib, err := state.NewLibrary(settings.StateDir, logger)
			if err != nil {
				return nil
			}
			id, err := state.ComputeHash(args[0])
			if err != nil {
				return nil
			}
			if b, ok := lib.Get(id); ok {
				line := b.Line
				if line >= doc.LineCount() {
					line = 0
				}
				fmt.Fprintf(out, "Saved:    line %d of %d (%d%%), %s\n",
					line+1, doc.LineCount(), doc.Percent(line), doc.Chapters.Title(doc.ChapterAt(line)))
			}
			return nil
		},
	}
}

func historyCmd(settings *config.Settings) *cobra.Command {
	var forget string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List books with saved progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closeLog, err := newLogger(*settings)
			if err != nil {
				return err
			}
			defer closeLog()

			lib, err := state.NewLibrary(settings.StateDir, logger)
			if err != nil {
				return fmt.Errorf("open library: %w", err)
			}

			if forget != "" {
				id, err := state.ComputeHash(forget)
				if err != nil {
					return fmt.Errorf("hash %s: %w", forget, err)
				}
				if err := lib.Clear(id); err != nil {
					return fmt.Errorf("clear %s: %w", forget, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Forgot %s\n", forget)
				return nil
			}

			books := lib.List()
			if len(books) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No saved progress.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), historyTable(books).Render())
			return nil
		},
	}
	cmd.Flags().StringVar(&forget, "forget", "", "remove saved progress for this file")
	return cmd
}

func historyTable(books []state.Book) *table.Table {
	rows := make([][]string, 0, len(books))
	for _, b := range books {
		progress := strconv.Itoa(b.Line + 1)
		if b.Lines > 0 {
			progress = fmt.Sprintf("%d/%d", b.Line+1, b.Lines)
		}
		updated := ""
		if !b.UpdatedAt.IsZero() {
			updated = b.UpdatedAt.Local().Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{b.Title, progress, updated, b.Path})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))).
		Headers("TITLE", "LINE", "READ", "PATH").
		Rows(rows...)
}
