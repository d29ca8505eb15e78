package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"alertmap/internal/feed"
	"alertmap/internal/mapview"
	"alertmap/internal/models"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	requestTimeout = 30 * time.Second
	frameInterval  = time.Second / 30
	toastWidth     = 34
	maxListItems   = 8
)

// Subscriber opens the live alert feed
type Subscriber interface {
	SubscribeAll(ctx context.Context, cb func([]models.Alert)) (*feed.Subscription, error)
}

type subscribedMsg struct {
	sub *feed.Subscription
	err error
}

type feedEndedMsg struct {
	err error
}

type locationMsg struct {
	pos     models.Position
	err     error
	forPost bool
}

type committedMsg struct {
	id  string
	err error
}

type frameMsg time.Time

// Model is the root Bubble Tea model around a Shell.
type Model struct {
	shell  *Shell
	feed   Subscriber
	events *Events
	keys   KeyMap

	input     textinput.Model
	focusList bool
	cursor    int

	width  int
	height int

	live    bool
	feedErr error
}

func NewModel(shell *Shell, sub Subscriber, events *Events) Model {
	input := textinput.New()
	input.Placeholder = "Describe what is happening..."
	input.CharLimit = models.MaxDescriptionLength
	input.Prompt = "> "
	input.Focus()

	return Model{
		shell:  shell,
		feed:   sub,
		events: events,
		keys:   DefaultKeyMap(),
		input:  input,
		width:  100,
		height: 40,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.subscribe(),
		m.events.waitForSnapshot(),
		m.events.waitForToasts(),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.shell.Map().Resize(m.mapSize())
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case subscribedMsg:
		if msg.err != nil {
			m.feedErr = msg.err
			return m, nil
		}
		m.live = true
		m.shell.Attach(msg.sub)
		return m, waitForFeedEnd(msg.sub)

	case feedEndedMsg:
		m.live = false
		m.feedErr = msg.err
		return m, nil

	case snapshotMsg:
		fresh := m.shell.HandleSnapshot(msg.alerts)
		m.clampCursor()
		return m, tea.Batch(m.events.waitForSnapshot(), m.notify(fresh))

	case toastsChangedMsg:
		return m, m.events.waitForToasts()

	case locationMsg:
		if !msg.forPost {
			m.shell.ShowLocation(msg.pos, msg.err)
			return m, nil
		}
		if msg.err != nil {
			m.shell.LocationFailed(msg.err)
			return m, nil
		}
		id, record, ok := m.shell.LocationAcquired(msg.pos)
		if !ok {
			return m, nil
		}
		return m, m.commit(id, record)

	case committedMsg:
		if m.shell.PostCommitted(msg.id, msg.err) {
			m.input.Reset()
		}
		return m, nil

	case frameMsg:
		if m.shell.Map().Step(time.Time(msg)) {
			return m, nextFrame()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.shell.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keys.CloseNotice):
		m.shell.DismissNotice()
		return m, nil

	case key.Matches(msg, m.keys.DismissToast):
		if items := m.shell.Toasts().Items(); len(items) > 0 {
			m.shell.Toasts().Remove(items[0].ID)
		}
		return m, nil

	case key.Matches(msg, m.keys.Locate):
		return m, m.locate(false)

	case key.Matches(msg, m.keys.SwitchFocus):
		m.focusList = !m.focusList
		if m.focusList {
			m.input.Blur()
			return m, nil
		}
		return m, m.input.Focus()
	}

	if m.focusList {
		return m.handleListKey(msg)
	}

	if key.Matches(msg, m.keys.Submit) {
		if m.shell.BeginPost(m.input.Value()) {
			return m, m.locate(true)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Down):
		if m.cursor < m.visibleItems()-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.FlyTo):
		if m.shell.FlyTo(m.cursor) {
			return m, nextFrame()
		}
	}
	return m, nil
}

func (m *Model) clampCursor() {
	if n := m.visibleItems(); m.cursor >= n {
		m.cursor = max(0, n-1)
	}
}

func (m Model) visibleItems() int {
	return min(len(m.shell.Alerts()), maxListItems)
}

func (m Model) mapSize() (cols, rows int) {
	cols = max(20, m.width-toastWidth-6)
	rows = max(6, m.height/3)
	return cols, rows
}

func (m Model) subscribe() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		sub, err := m.feed.SubscribeAll(ctx, m.events.OnSnapshot)
		return subscribedMsg{sub: sub, err: err}
	}
}

func waitForFeedEnd(sub *feed.Subscription) tea.Cmd {
	return func() tea.Msg {
		<-sub.Done()
		return feedEndedMsg{err: sub.Err()}
	}
}

func (m Model) locate(forPost bool) tea.Cmd {
	locator := m.shell.locator
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		pos, err := locator.CurrentPosition(ctx)
		return locationMsg{pos: pos, err: err, forPost: forPost}
	}
}

func (m Model) commit(id string, record models.AlertRecord) tea.Cmd {
	store := m.shell.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		_, err := store.Commit(ctx, id, record)
		return committedMsg{id: id, err: err}
	}
}

func (m Model) notify(alerts []models.Alert) tea.Cmd {
	if len(alerts) == 0 {
		return nil
	}
	shell := m.shell
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		shell.Notify(ctx, alerts)
		return nil
	}
}

func nextFrame() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (m Model) View() string {
	var b strings.Builder

	status := "offline"
	if m.live {
		status = "live"
	}
	b.WriteString(headerStyle.Render("alertmap") + " " + metaStyle.Render(status))
	if m.feedErr != nil && !m.live {
		b.WriteString(" " + metaStyle.Render(m.feedErr.Error()))
	}
	b.WriteString("\n")

	if notice := m.shell.Notice(); notice != "" {
		b.WriteString(noticeStyle.Render(notice+"  [esc] close") + "\n")
	}

	b.WriteString(sectionStyle.Render("Alert description") + "\n")
	b.WriteString(m.input.View() + "\n")
	b.WriteString(m.postStatus() + "\n")

	b.WriteString(sectionStyle.Render("Map") + "\n")
	mapBox := mapStyle.Render(m.shell.Map().Render())
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, mapBox, " ", m.toastsView()) + "\n")

	b.WriteString(sectionStyle.Render("Latest alerts") + "\n")
	b.WriteString(m.listView())

	b.WriteString("\n" + helpStyle.Render(m.helpLine()))
	return b.String()
}

func (m Model) postStatus() string {
	switch m.shell.State() {
	case StateAcquiringLocation:
		return metaStyle.Render("Locating...")
	case StateSubmitting:
		return metaStyle.Render("Publishing...")
	default:
		return helpStyle.Render("[enter] Publish alert")
	}
}

func (m Model) toastsView() string {
	items := m.shell.Toasts().Items()
	if len(items) == 0 {
		return ""
	}

	boxes := make([]string, 0, len(items))
	for _, t := range items {
		content := t.Message
		if t.Title != "" {
			content = toastTitleStyle.Render(t.Title) + "\n" + content
		}
		boxes = append(boxes, toastStyle.Render(content))
	}
	return lipgloss.JoinVertical(lipgloss.Left, boxes...)
}

func (m Model) listView() string {
	latest := m.shell.Latest()
	if len(latest) == 0 {
		return metaStyle.Render("  No alerts yet") + "\n"
	}

	var b strings.Builder
	for i, a := range latest[:m.visibleItems()] {
		meta := fmt.Sprintf("%s • %s", mapview.FormatTime(a.CreatedAt), a.Position())
		if d := m.shell.DistanceLabel(a); d != "" {
			meta += " • " + d
		}

		text := a.Description + "\n" + metaStyle.Render(meta)
		if m.focusList && i == m.cursor {
			b.WriteString(selectedItemStyle.Render(text+"\n"+helpStyle.Render("enter: show on map")) + "\n")
			continue
		}
		b.WriteString(itemStyle.Render(text) + "\n")
	}
	if extra := len(latest) - m.visibleItems(); extra > 0 {
		b.WriteString(metaStyle.Render(fmt.Sprintf("  ... and %d more", extra)) + "\n")
	}
	return b.String()
}

func (m Model) helpLine() string {
	bindings := []key.Binding{m.keys.Submit, m.keys.Locate, m.keys.SwitchFocus, m.keys.DismissToast, m.keys.Quit}
	if m.focusList {
		bindings = []key.Binding{m.keys.Up, m.keys.Down, m.keys.FlyTo, m.keys.SwitchFocus, m.keys.Quit}
	}

	parts := make([]string, 0, len(bindings))
	for _, k := range bindings {
		h := k.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}
