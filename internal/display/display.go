// Package display provides the terminal UI using Bubble Tea.
//
// The [UI] type renders the dish picker, the assembly animation and the
// result panel. It never changes application state itself: key presses
// are forwarded to a [Controller], and the controller's change listener
// calls [UI.Refresh] so the view re-reads the current snapshot.
package display

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hammamikhairi/ottoplate/internal/domain"
	"github.com/hammamikhairi/ottoplate/internal/logger"
)

// Controller is the state machine the UI drives.
type Controller interface {
	Select(kind domain.DishKind) error
	Create(ctx context.Context) bool
	Reset() bool
	Busy() bool
	Snapshot() domain.Snapshot
}

// ── UI ───────────────────────────────────────────────────────────

// UI manages the terminal through Bubble Tea.
//
// Call [NewUI] then [UI.Run] (blocking). [UI.Refresh] and
// [UI.StageReached] may be called from any goroutine except the Bubble
// Tea event loop itself.
type UI struct {
	program atomic.Pointer[tea.Program]
	ctx     context.Context
	ctrl    Controller
	dishes  []domain.DishOption
	store   domain.PreviewStore
	chime   domain.Chime
	log     *logger.Logger
	done    atomic.Bool
}

// NewUI creates the display. Call Run() to start.
func NewUI(ctx context.Context, ctrl Controller, dishes []domain.DishOption, store domain.PreviewStore, chime domain.Chime, log *logger.Logger) *UI {
	return &UI{
		ctx:    ctx,
		ctrl:   ctrl,
		dishes: dishes,
		store:  store,
		chime:  chime,
		log:    log,
	}
}

// Refresh tells the view that the controller state changed.
func (u *UI) Refresh() { u.send(stateMsg{}) }

// StageReached forwards an animation stage to the view.
func (u *UI) StageReached(kind domain.DishKind, stage int) {
	u.send(stageMsg{kind: kind, stage: stage})
}

func (u *UI) send(msg tea.Msg) {
	if p := u.program.Load(); p != nil && !u.done.Load() {
		p.Send(msg)
	}
}

// Run starts the Bubble Tea event loop. Blocks until quit.
func (u *UI) Run() error {
	m := newModel(u.ctx, u.ctrl, u.dishes, u.store, u.chime, u.log)
	p := tea.NewProgram(m, tea.WithContext(u.ctx))
	u.program.Store(p)

	_, err := p.Run()
	u.done.Store(true)
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

// ── Bubble Tea model ─────────────────────────────────────────────

// Messages.
type (
	stateMsg struct{}
	stageMsg struct {
		kind  domain.DishKind
		stage int
	}
	savedMsg struct {
		attemptID string
		path      string
		err       error
	}
)

type model struct {
	ctx    context.Context
	ctrl   Controller
	dishes []domain.DishOption
	store  domain.PreviewStore
	chime  domain.Chime
	log    *logger.Logger

	keys keyMap
	help help.Model
	spin spinner.Model

	snap     domain.Snapshot
	stage    int    // animation stage reached by the current attempt
	saved    string // preview path of the current result
	savedErr error
	width    int
}

func newModel(ctx context.Context, ctrl Controller, dishes []domain.DishOption, store domain.PreviewStore, chime domain.Chime, log *logger.Logger) model {
	m := model{
		ctx:    ctx,
		ctrl:   ctrl,
		dishes: dishes,
		store:  store,
		chime:  chime,
		log:    log,
		keys:   newKeyMap(),
		help:   help.New(),
		spin: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(goldStyle),
		),
		snap: ctrl.Snapshot(),
	}
	m.keys.sync(m.snap.State)
	return m
}

func (m model) Init() tea.Cmd {
	return tea.SetWindowTitle("ottoplate")
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case stateMsg:
		return m.refresh()

	case stageMsg:
		if m.snap.State.Busy() && msg.kind == m.snap.Dish.Kind && msg.stage > m.stage {
			m.stage = msg.stage
		}
		return m, nil

	case savedMsg:
		if msg.attemptID == m.snap.AttemptID {
			m.saved, m.savedErr = msg.path, msg.err
		}
		return m, nil

	case spinner.TickMsg:
		if !m.snap.State.Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handleKey maps key presses to controller calls. Controller calls run as
// commands, off the event loop, because they trigger Refresh.
func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctrl := m.ctrl
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Prev), key.Matches(msg, m.keys.Next):
		step := 1
		if key.Matches(msg, m.keys.Prev) {
			step = -1
		}
		kind := m.neighbour(step)
		return m, func() tea.Msg {
			if err := ctrl.Select(kind); err != nil && !errors.Is(err, domain.ErrBusy) {
				m.log.Warn("display: select %s: %v", kind, err)
			}
			return nil
		}

	case key.Matches(msg, m.keys.Pick):
		kind, err := domain.ParseDishKind(msg.String())
		if err != nil {
			return m, nil
		}
		return m, func() tea.Msg {
			if err := ctrl.Select(kind); err != nil && !errors.Is(err, domain.ErrBusy) {
				m.log.Warn("display: select %s: %v", kind, err)
			}
			return nil
		}

	case key.Matches(msg, m.keys.Create):
		ctx := m.ctx
		return m, func() tea.Msg {
			ctrl.Create(ctx)
			return nil
		}

	case key.Matches(msg, m.keys.Reset):
		return m, func() tea.Msg {
			ctrl.Reset()
			return nil
		}
	}
	return m, nil
}

// neighbour returns the dish step positions away from the selection.
func (m model) neighbour(step int) domain.DishKind {
	if len(m.dishes) == 0 {
		return m.snap.Dish.Kind
	}
	idx := 0
	for i, d := range m.dishes {
		if d.Kind == m.snap.Dish.Kind {
			idx = i
		}
	}
	idx = (idx + step + len(m.dishes)) % len(m.dishes)
	return m.dishes[idx].Kind
}

// refresh re-reads the controller and reacts to transitions.
func (m model) refresh() (tea.Model, tea.Cmd) {
	prev := m.snap
	m.snap = m.ctrl.Snapshot()
	m.keys.sync(m.snap.State)

	var cmds []tea.Cmd

	if m.snap.AttemptID != prev.AttemptID {
		m.stage = 0
		m.saved, m.savedErr = "", nil
	}
	if m.snap.State.Busy() && !prev.State.Busy() {
		cmds = append(cmds, m.spin.Tick)
	}
	if m.snap.State == domain.StateComplete &&
		(prev.State != domain.StateComplete || prev.AttemptID != m.snap.AttemptID) {
		m.chime.Ring()
		cmds = append(cmds, m.saveCmd(m.snap))
	}
	return m, tea.Batch(cmds...)
}

func (m model) saveCmd(snap domain.Snapshot) tea.Cmd {
	ctx, store := m.ctx, m.store
	return func() tea.Msg {
		path, err := store.Save(ctx, snap)
		return savedMsg{attemptID: snap.AttemptID, path: path, err: err}
	}
}

// ── View ─────────────────────────────────────────────────────────

func (m model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("Culinary") + goldStyle.Render("AI") + headerStyle.Render(" Stylist"))
	b.WriteString(dimStyle.Render("  · Style your dish"))
	b.WriteString("\n\n")

	b.WriteString(m.renderCards())
	b.WriteString("\n\n")
	b.WriteString(m.renderAction())
	b.WriteString("\n\n")
	b.WriteString(panelStyle.Width(m.panelWidth()).Render(m.renderPreview()))
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n")
	return b.String()
}

func (m model) panelWidth() int {
	w := m.width - 4
	if w <= 0 || w > 76 {
		w = 76
	}
	return w
}

func (m model) renderCards() string {
	busy := m.snap.State.Busy()
	cards := make([]string, 0, len(m.dishes))
	for i, d := range m.dishes {
		selected := d.Kind == m.snap.Dish.Kind

		title := fmt.Sprintf("%d. %s", i+1, d.Title)
		var body strings.Builder
		if selected {
			body.WriteString(goldStyle.Bold(true).Render(title))
		} else {
			body.WriteString(primaryStyle.Render(title))
		}
		body.WriteString("\n")
		body.WriteString(dimStyle.Render(strings.ToUpper(d.Style)))
		body.WriteString("\n\n")
		body.WriteString(ingredientStyle.Render(strings.Join(d.Ingredients, " · ")))

		style := cardStyle
		if selected {
			style = selectedCardStyle
		}
		if busy {
			style = style.Faint(true)
		}
		cards = append(cards, style.Render(body.String()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func (m model) renderAction() string {
	if m.snap.State.Busy() {
		return m.spin.View() + " " + dimStyle.Render("Styling...")
	}
	return buttonStyle.Render(" ⏎  Create Masterpiece ")
}

func (m model) renderPreview() string {
	switch m.snap.State {
	case domain.StateBusy, domain.StateGenerating:
		return m.renderAssembly()
	case domain.StateComplete:
		return m.renderResult()
	case domain.StateError:
		return m.renderError()
	default:
		return lipgloss.JoinVertical(lipgloss.Center,
			dimStyle.Render("( ◌ )"),
			primaryStyle.Render("Preview Area"),
			dimStyle.Render("Select a dish and press enter to create"),
		)
	}
}

func (m model) renderAssembly() string {
	layers := layersFor(m.snap.Dish.Kind)

	// Drawn top layer first so the plate reads bottom-up.
	var rows []string
	for i := len(layers) - 1; i >= 0; i-- {
		l := layers[i]
		if m.stage > i {
			rows = append(rows, l.style.Render(centre(l.label, l.width)))
		} else {
			rows = append(rows, "")
		}
	}
	rows = append(rows, "", primaryStyle.Render("ASSEMBLING "+assemblyWord(m.snap.Dish.Kind)+"..."))
	if m.snap.State == domain.StateGenerating {
		rows = append(rows, m.spin.View()+" "+dimStyle.Render("Waiting for the kitchen..."))
	}
	return lipgloss.JoinVertical(lipgloss.Center, rows...)
}

func (m model) renderResult() string {
	rows := []string{
		badgeStyle.Render(" AI GENERATED "),
		"",
		headerStyle.Render(m.snap.Dish.DisplayName()),
	}
	if img := m.snap.Image; img != nil {
		rows = append(rows, dimStyle.Render(fmt.Sprintf("%s · %s", img.MIMEType, formatSize(len(img.Data)))))
	}
	switch {
	case m.savedErr != nil:
		rows = append(rows, errorStyle.Render("Could not save preview: "+m.savedErr.Error()))
	case m.saved != "":
		rows = append(rows, primaryStyle.Render("Saved to "+m.saved))
	default:
		rows = append(rows, dimStyle.Render("Saving preview..."))
	}
	return lipgloss.JoinVertical(lipgloss.Center, rows...)
}

func (m model) renderError() string {
	rows := []string{
		errorStyle.Render("Something went wrong."),
		primaryStyle.Render(m.snap.Message),
	}
	if m.snap.Err != nil {
		rows = append(rows, dimStyle.Render(m.snap.Err.Error()))
	}
	rows = append(rows, "", dimStyle.Render("press r to reset"))
	return lipgloss.JoinVertical(lipgloss.Center, rows...)
}

// ── Helpers ──────────────────────────────────────────────────────

// centre pads s to width display columns.
func centre(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	left := (width - w) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-w-left)
}

func formatSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%d KB", n>>10)
	default:
		return fmt.Sprintf("%d B", n)
	}
}
