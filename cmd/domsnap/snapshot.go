package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/anxuanzi/bua-dom/browser"
	"github.com/anxuanzi/bua-dom/dom"
	"github.com/anxuanzi/bua-dom/prompt"
	"github.com/anxuanzi/bua-dom/screenshot"
	"github.com/anxuanzi/bua-dom/store"
)

var (
	snapAnnotate string
	snapRecord   string
	snapTimeout  time.Duration
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <url>",
	Short: "Open a page and print its interactive elements",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshot,
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.Flags().StringVar(&snapAnnotate, "annotate", "", "Write an annotated PNG screenshot to this path")
	snapshotCmd.Flags().StringVar(&snapRecord, "record", "", "Store every indexed element under this step id")
	snapshotCmd.Flags().DurationVar(&snapTimeout, "timeout", 2*time.Minute, "Overall timeout")
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), snapTimeout)
	defer cancel()

	logger := log.With().Str("comp", "snapshot").Logger()
	s, err := browser.Launch(ctx, cfg.BrowserSession(&logger))
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Navigate(ctx, args[0]); err != nil {
		return err
	}

	opts := cfg.StateOptions()
	opts.Screenshot = snapAnnotate != ""
	st, err := s.State(ctx, opts)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), prompt.Describe(st, cfg.DOM.IncludeAttributes))

	if snapAnnotate != "" {
		img, err := screenshot.Annotate(st.Screenshot, st.SelectorMap, screenshot.DefaultAnnotationConfig())
		if err != nil {
			return err
		}
		if err := os.WriteFile(snapAnnotate, img, 0o644); err != nil {
			return fmt.Errorf("write annotated screenshot: %w", err)
		}
		logger.Info().Str("path", snapAnnotate).Msg("annotated screenshot written")
	}

	if snapRecord != "" {
		return recordState(ctx, cmd.OutOrStdout(), cfg.History.DBPath, snapRecord, st)
	}
	return nil
}

// recordState stores one history record per indexed element of st, in
// index order.
func recordState(ctx context.Context, out io.Writer, dbPath, stepID string, st *browser.State) error {
	var elems []*dom.HistoryElement
	for _, idx := range st.SelectorMap.Indices() {
		elems = append(elems, dom.NewHistoryElement(st.SelectorMap[idx]))
	}
	if len(elems) == 0 {
		fmt.Fprintln(out, "nothing to record")
		return nil
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	recs, err := db.Save(ctx, stepID, st.URL, elems...)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "recorded %d elements under step %s\n", len(recs), stepID)
	return nil
}
