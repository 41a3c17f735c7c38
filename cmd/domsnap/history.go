package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/anxuanzi/bua-dom/dom"
	"github.com/anxuanzi/bua-dom/store"
)

var relocateStep string

var relocateCmd = &cobra.Command{
	Use:   "relocate <walk.json>",
	Short: "Find the elements recorded under a step in a saved page walk",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read walk: %w", err)
		}
		db, err := store.Open(cfg.History.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		return relocateStepIn(cmd.Context(), cmd.OutOrStdout(), db, relocateStep, raw)
	},
}

var stepsCmd = &cobra.Command{
	Use:   "steps",
	Short: "List recorded step ids",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.Open(cfg.History.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		steps, err := db.Steps(cmd.Context())
		if err != nil {
			return err
		}
		for _, s := range steps {
			fmt.Fprintln(cmd.OutOrStdout(), s)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(relocateCmd, stepsCmd)
	relocateCmd.Flags().StringVar(&relocateStep, "step", "", "Step id the elements were recorded under")
	_ = relocateCmd.MarkFlagRequired("step")
}

// relocateStepIn prints, per recorded element, the index it has in the
// walk or "missing".
func relocateStepIn(ctx context.Context, out io.Writer, db *store.Store, stepID string, raw []byte) error {
	recs, err := db.Load(ctx, stepID)
	if err != nil {
		return err
	}
	st, err := dom.Materialize(raw)
	if err != nil {
		return err
	}

	for _, r := range recs {
		node := dom.Relocate(r.Element, st.ElementTree)
		if node == nil {
			fmt.Fprintf(out, "#%d %s: missing\n", r.Position, r.Element.XPath)
			continue
		}
		idx, _ := node.Index()
		fmt.Fprintf(out, "#%d %s: [%d] %s\n", r.Position, r.Element.XPath, idx, node)
	}
	return nil
}
