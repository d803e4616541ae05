package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/occva/X-Bookmarks/internal/aggregate"
	"github.com/occva/X-Bookmarks/internal/domain"
)

const defaultTableWidth = 80

var statsTop int

var statsCmd = &cobra.Command{
	Use:   "stats [files...]",
	Short: "Print per-author tweet counts",
	Long: `Prints how many times each author appears across the loaded tweets,
counting quoted authors too. Authors are ordered by count, highest first.`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().IntVarP(&statsTop, "top", "n", 0, "Only show the top N authors (0 for all)")
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.load(commandContext(cmd), args); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	writeStats(out, a.svc.Summary(), a.svc.UserStats(), statsTop, outputWidth(out))
	return nil
}

// outputWidth returns the terminal width when w is a terminal.
func outputWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return defaultTableWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultTableWidth
	}
	return width
}

// writeStats prints the summary and a rank/count/author table fitted to width.
func writeStats(w io.Writer, summary aggregate.Summary, stats []domain.UserStat, top, width int) {
	fmt.Fprintf(w, "%d tweets (%d distinct, %d duplicated), %d authors, %d images\n\n",
		summary.Total, summary.Distinct, summary.Duplicated, summary.Users, summary.Media)

	if len(stats) == 0 {
		fmt.Fprintln(w, "No authors.")
		return
	}
	if top > 0 && top < len(stats) {
		stats = stats[:top]
	}

	rankWidth := len(strconv.Itoa(len(stats)))
	countWidth := len("COUNT")
	for _, s := range stats {
		if n := len(strconv.Itoa(s.Count)); n > countWidth {
			countWidth = n
		}
	}

	// Two-space gutters between the three columns.
	authorWidth := width - rankWidth - countWidth - 4
	if authorWidth < 10 {
		authorWidth = 10
	}

	fmt.Fprintf(w, "%*s  %*s  %s\n", rankWidth, "#", countWidth, "COUNT", "AUTHOR")
	for i, s := range stats {
		author := "@" + s.ScreenName
		if s.Name != "" && s.Name != s.ScreenName {
			author = s.Name + " " + author
		}
		author = runewidth.Truncate(author, authorWidth, "…")
		fmt.Fprintf(w, "%*d  %*d  %s\n", rankWidth, i+1, countWidth, s.Count, author)
	}
}
