package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/anxuanzi/bua-dom/dom"
)

var (
	renderSelectors bool
	renderDynamic   bool
)

var renderCmd = &cobra.Command{
	Use:   "render <walk.json>",
	Short: "Render a saved page walk the way it is shown to the model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read walk: %w", err)
		}
		return renderWalk(cmd.OutOrStdout(), raw, cfg.DOM.IncludeAttributes, renderSelectors, renderDynamic)
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().BoolVar(&renderSelectors, "selectors", false, "Also print a CSS selector and digest per index")
	renderCmd.Flags().BoolVar(&renderDynamic, "dynamic", false, "Include classes and test hooks in selectors")
}

func renderWalk(out io.Writer, raw []byte, include []string, selectors, dynamic bool) error {
	st, err := dom.Materialize(raw)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, st.ElementTree.ClickableElementsToString(include))

	if !selectors {
		return nil
	}
	fmt.Fprintln(out)
	for _, idx := range st.SelectorMap.Indices() {
		el := st.SelectorMap[idx]
		fmt.Fprintf(out, "[%d] %s %s\n", idx, dom.Digest(el)[:12], dom.EnhancedSelector(el, dynamic))
	}
	return nil
}
