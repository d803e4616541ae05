package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/occva/X-Bookmarks/pkg/ui"
)

var (
	renderOutput string
	renderUser   string
	renderTitle  string
)

var renderCmd = &cobra.Command{
	Use:   "render [files...]",
	Short: "Write the feed as a static HTML page",
	Long: `Renders every loaded tweet into one self-contained HTML page, using the
same template as the web viewer.`,
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "-", "Output file (- for stdout)")
	renderCmd.Flags().StringVar(&renderUser, "user", "", "Only include tweets by or quoting this user")
	renderCmd.Flags().StringVar(&renderTitle, "title", ui.DefaultTitle, "Page title")
}

func runRender(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.load(commandContext(cmd), args); err != nil {
		return err
	}

	page := ui.NewPage(a.svc, renderUser, 0, 0)
	page.Title = renderTitle
	page.Static = true

	var out io.Writer = cmd.OutOrStdout()
	if renderOutput != "" && renderOutput != "-" {
		f, err := os.Create(renderOutput)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	bw := bufio.NewWriter(out)
	if err := ui.Render(bw, page); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	if renderOutput != "" && renderOutput != "-" {
		a.logger.Info("page written", "path", renderOutput, "tweets", page.Total)
	}
	return nil
}
