package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/occva/X-Bookmarks/cmd/xbookmarks/internal/tui"
)

var browseCmd = &cobra.Command{
	Use:   "browse [files...]",
	Short: "Browse the feed in the terminal",
	Long: `Opens a terminal browser with an author list, a tweet list and a detail
pane.

Keys: Enter filters by the selected author, Esc clears the filter, Tab
switches panes, r reloads the sources, q quits.`,
	RunE: runBrowse,
}

func runBrowse(cmd *cobra.Command, args []string) error {
	// The terminal belongs to the browser; logs would corrupt the screen.
	a, err := newApp(io.Discard)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.load(commandContext(cmd), args); err != nil {
		return err
	}

	return tui.NewApp(a.svc, a.logger).Run()
}
