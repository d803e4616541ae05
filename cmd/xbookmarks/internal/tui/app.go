// Package tui provides the terminal feed browser.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/occva/X-Bookmarks/internal/domain"
	"github.com/occva/X-Bookmarks/internal/render"
	"github.com/occva/X-Bookmarks/internal/service"
)

// allUsers is the label of the first user-list entry, which clears the filter.
const allUsers = "全部"

// App is the terminal feed browser.
type App struct {
	app    *tview.Application
	svc    *service.FeedService
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	// UI components
	mainFlex  *tview.Flex
	header    *tview.TextView
	footer    *tview.TextView
	statusBar *tview.TextView
	userList  *tview.List
	cardTable *tview.Table
	detail    *tview.TextView

	// State
	mu       sync.Mutex
	filter   string
	items    []service.Item
	records  map[domain.TweetID]*domain.Record
	stats    []domain.UserStat
	reloadMu sync.Mutex
}

// NewApp creates the browser for the service's current working set.
func NewApp(svc *service.FeedService, logger *slog.Logger) *App {
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		app:    tview.NewApplication(),
		svc:    svc,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}

	a.setupUI()
	a.refresh()
	return a
}

// setupUI initializes all UI components.
func (a *App) setupUI() {
	a.header = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	a.header.SetBackgroundColor(tcell.ColorDarkBlue)

	a.footer = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText("[yellow]Enter[white]:Filter by user [yellow]Esc[white]:Clear filter [yellow]Tab[white]:Switch pane [yellow]r[white]:Reload [yellow]q[white]:Quit")
	a.footer.SetBackgroundColor(tcell.ColorDarkBlue)

	a.statusBar = tview.NewTextView().
		SetDynamicColors(true)
	a.statusBar.SetBackgroundColor(tcell.ColorDarkGreen)

	a.userList = tview.NewList().
		ShowSecondaryText(false).
		SetHighlightFullLine(true)
	a.userList.SetBorder(true).SetTitle(" Users ")
	a.userList.SetSelectedFunc(func(index int, _ string, _ string, _ rune) {
		a.selectUser(index)
	})

	a.cardTable = tview.NewTable().
		SetBorders(false).
		SetSelectable(true, false).
		SetFixed(1, 0)
	a.cardTable.SetBorder(true).SetTitle(" Tweets ")
	a.cardTable.SetSelectedStyle(tcell.StyleDefault.
		Foreground(tcell.ColorWhite).
		Background(tcell.ColorDarkCyan))
	a.cardTable.SetSelectionChangedFunc(func(row, _ int) {
		a.showDetail(row - 1)
	})

	a.detail = tview.NewTextView().
		SetDynamicColors(true).
		SetWordWrap(true).
		SetScrollable(true)
	a.detail.SetBorder(true).SetTitle(" Detail ")

	right := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.cardTable, 0, 1, false).
		AddItem(a.detail, 0, 1, false)

	body := tview.NewFlex().
		AddItem(a.userList, 32, 0, true).
		AddItem(right, 0, 1, false)

	a.mainFlex = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.header, 1, 0, false).
		AddItem(body, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false).
		AddItem(a.footer, 1, 0, false)

	a.app.SetInputCapture(a.handleGlobalKeys)
	a.app.SetRoot(a.mainFlex, true)
}

// handleGlobalKeys handles global keyboard shortcuts.
func (a *App) handleGlobalKeys(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyRune:
		switch event.Rune() {
		case 'q', 'Q':
			a.Stop()
			return nil
		case 'r', 'R':
			go a.reload()
			return nil
		}
	case tcell.KeyEscape:
		a.setFilter("")
		a.userList.SetCurrentItem(0)
		return nil
	case tcell.KeyTab:
		if a.app.GetFocus() == a.userList {
			a.app.SetFocus(a.cardTable)
		} else {
			a.app.SetFocus(a.userList)
		}
		return nil
	}
	return event
}

// selectUser applies the filter for the user-list entry at index.
func (a *App) selectUser(index int) {
	a.mu.Lock()
	stats := a.stats
	a.mu.Unlock()

	if index <= 0 || index > len(stats) {
		a.setFilter("")
		return
	}
	a.setFilter(stats[index-1].ScreenName)
}

// setFilter restricts the card table to one author.
func (a *App) setFilter(user string) {
	a.mu.Lock()
	a.filter = user
	a.mu.Unlock()
	a.updateCards()
}

// refresh rebuilds every pane from the service.
func (a *App) refresh() {
	snap := a.svc.Snapshot()

	records := make(map[domain.TweetID]*domain.Record, len(snap.Records))
	for i := range snap.Records {
		records[snap.Records[i].ID] = &snap.Records[i]
	}

	a.mu.Lock()
	a.records = records
	a.stats = snap.Stats
	a.mu.Unlock()

	a.updateHeader(snap)
	a.updateUsers()
	a.updateCards()
}

func (a *App) updateHeader(snap *service.Snapshot) {
	a.header.SetText(fmt.Sprintf("[white::b]X Bookmarks[white] | Tweets: [green]%d[white] | Users: [green]%d[white] | Duplicated: [green]%d",
		snap.Summary.Distinct, snap.Summary.Users, snap.Summary.Duplicated))
	if snap.Warning != "" {
		a.setStatus("[yellow]" + tview.Escape(snap.Warning))
	}
}

func (a *App) updateUsers() {
	a.mu.Lock()
	stats := a.stats
	a.mu.Unlock()

	a.userList.Clear()
	a.userList.AddItem(allUsers, "", 0, nil)
	for _, s := range stats {
		a.userList.AddItem(userLabel(s), "", 0, nil)
	}
}

func (a *App) updateCards() {
	a.mu.Lock()
	filter := a.filter
	a.mu.Unlock()

	items, total := a.svc.Cards(0, 0, filter)

	a.mu.Lock()
	a.items = items
	a.mu.Unlock()

	a.cardTable.Clear()
	for i, h := range []string{"AUTHOR", "TEXT", "MEDIA", "LIKES", "DUP"} {
		cell := tview.NewTableCell(h).
			SetTextColor(tcell.ColorYellow).
			SetSelectable(false).
			SetExpansion(1)
		if i == 1 {
			cell.SetExpansion(4)
		}
		a.cardTable.SetCell(0, i, cell)
	}

	for i := range items {
		it := &items[i]
		row := i + 1
		a.cardTable.SetCell(row, 0, tview.NewTableCell(tview.Escape("@"+it.Author.ScreenName)).SetExpansion(1))
		a.cardTable.SetCell(row, 1, tview.NewTableCell(tview.Escape(oneLine(it.Text, 80))).SetExpansion(4))
		a.cardTable.SetCell(row, 2, tview.NewTableCell(fmt.Sprintf("%d", len(it.Media))).SetExpansion(1))
		a.cardTable.SetCell(row, 3, tview.NewTableCell(render.FormatNumber(it.Counters.Likes)).SetExpansion(1))
		dup := ""
		if it.IsDuplicate() {
			dup = fmt.Sprintf("×%d", it.DuplicateCount)
		}
		a.cardTable.SetCell(row, 4, tview.NewTableCell(dup).SetTextColor(tcell.ColorAqua).SetExpansion(1))
	}

	title := " Tweets "
	if filter != "" {
		title = fmt.Sprintf(" Tweets by @%s ", tview.Escape(filter))
	}
	a.cardTable.SetTitle(title)
	a.setStatus(fmt.Sprintf("%d tweet(s)", total))

	if len(items) > 0 {
		a.cardTable.Select(1, 0)
		a.showDetail(0)
	} else {
		a.detail.SetText("")
	}
}

// showDetail fills the detail pane with the item at index.
func (a *App) showDetail(index int) {
	a.mu.Lock()
	if index < 0 || index >= len(a.items) {
		a.mu.Unlock()
		return
	}
	it := a.items[index]
	rec := a.records[it.ID]
	a.mu.Unlock()

	a.detail.SetText(detailText(&it, rec, time.Now()))
	a.detail.ScrollToBeginning()
}

// reload re-runs the last load and redraws.
func (a *App) reload() {
	if !a.reloadMu.TryLock() {
		return
	}
	defer a.reloadMu.Unlock()

	a.app.QueueUpdateDraw(func() { a.setStatus("Reloading...") })

	outcome, err := a.svc.Reload(a.ctx)
	if err != nil {
		a.logger.Warn("reload failed", "error", err)
		a.app.QueueUpdateDraw(func() {
			a.setStatus("[red]Reload failed: " + tview.Escape(err.Error()))
		})
		return
	}

	a.app.QueueUpdateDraw(func() {
		a.refresh()
		a.setStatus(fmt.Sprintf("[green]Reloaded %d record(s)", outcome.Records))
	})
}

func (a *App) setStatus(msg string) {
	a.statusBar.SetText(fmt.Sprintf(" %s | %s", msg, time.Now().Format("15:04:05")))
}

// Run starts the TUI application.
func (a *App) Run() error {
	return a.app.Run()
}

// Stop stops the TUI application.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}

func userLabel(s domain.UserStat) string {
	name := s.Name
	if name == "" {
		name = s.ScreenName
	}
	return tview.Escape(fmt.Sprintf("%s @%s (%d)", name, s.ScreenName, s.Count))
}

// detailText renders an item as tview-tagged text. Links are expanded to
// their destinations since the terminal cannot follow anchors.
func detailText(it *service.Item, rec *domain.Record, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "[white::b]%s[-::-] [gray]@%s", tview.Escape(it.Author.Name), tview.Escape(it.Author.ScreenName))
	if rel := render.RelativeTime(it.CreatedAt, now); rel != "" {
		fmt.Fprintf(&b, " · %s", rel)
	}
	b.WriteString("[-]\n")
	if it.IsDuplicate() {
		fmt.Fprintf(&b, "[aqua]出现 %d 次[-]\n", it.DuplicateCount)
	}
	b.WriteString("\n")
	b.WriteString(tview.Escape(render.ExpandLinks(it.Text, rec)))
	b.WriteString("\n")

	for _, m := range it.Media {
		url := m.Original
		if url == "" {
			url = m.Thumbnail
		}
		fmt.Fprintf(&b, "\n[blue]%s[-]", tview.Escape(url))
	}
	if len(it.Media) > 0 {
		b.WriteString("\n")
	}

	if q := it.Quoted; q != nil {
		fmt.Fprintf(&b, "\n[yellow]┃[-] [white::b]%s[-::-] [gray]@%s[-]\n", tview.Escape(q.Author.Name), tview.Escape(q.Author.ScreenName))
		for _, line := range strings.Split(q.Text, "\n") {
			fmt.Fprintf(&b, "[yellow]┃[-] %s\n", tview.Escape(line))
		}
	}

	fmt.Fprintf(&b, "\n[gray]回复 %s  转推 %s  喜欢 %s  书签 %s[-]\n",
		render.FormatNumber(it.Counters.Replies),
		render.FormatNumber(it.Counters.Retweets),
		render.FormatNumber(it.Counters.Likes),
		render.FormatNumber(it.Counters.Bookmarks),
	)
	fmt.Fprintf(&b, "[blue]%s[-]", tview.Escape(it.URL))
	return b.String()
}

// oneLine flattens text and cuts it to max runes.
func oneLine(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "…"
}
