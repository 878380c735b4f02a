package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/lox/dicerush/internal/game"
)

const commandTimeout = 5 * time.Second

// Commander is the part of a match runner the client drives.
type Commander interface {
	LockBet(ctx context.Context, amount int, prediction game.Prediction) error
	DismissResults(ctx context.Context) error
	Reset(ctx context.Context) error
}

// SaveFunc persists the current match and returns where it went.
type SaveFunc func(ctx context.Context) (string, error)

// Options configure a TUIModel.
type Options struct {
	Commands  Commander
	Snapshots <-chan game.Snapshot
	Save      SaveFunc // nil disables saving
}

// TUIModel is the Bubble Tea model for a dice rush match. It renders
// snapshots and turns typed input into runner commands; it never touches
// match state directly.
type TUIModel struct {
	ctx       context.Context
	logger    *log.Logger
	commands  Commander
	snapshots <-chan game.Snapshot
	save      SaveFunc

	// UI components
	logViewport viewport.Model
	actionInput textinput.Model

	// State
	snapshot     game.Snapshot
	haveSnapshot bool
	feedClosed   bool
	gameLog      []string
	status       string
	statusErr    bool
	quitting     bool
	focusedPane  int // 0 = log, 1 = input

	// Dimensions
	width       int
	height      int
	initialized bool
}

// QuitMsg is a custom message to signal quit
type QuitMsg struct{}

type snapshotMsg game.Snapshot

type feedClosedMsg struct{}

type commandResultMsg struct {
	action string
	detail string
	err    error
}

// NewTUIModel creates the model. ctx bounds every command it issues.
func NewTUIModel(ctx context.Context, logger *log.Logger, opts Options) *TUIModel {
	vp := viewport.New(10, 5)
	vp.SetContent("")

	ti := textinput.New()
	ti.Placeholder = "h 10, lower 5, l max"
	ti.Focus()
	ti.CharLimit = 32
	ti.Width = 40
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	ti.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA"))
	ti.Prompt = "> "

	return &TUIModel{
		ctx:         ctx,
		logger:      logger.WithPrefix("tui"),
		commands:    opts.Commands,
		snapshots:   opts.Snapshots,
		save:        opts.Save,
		logViewport: vp,
		actionInput: ti,
		gameLog:     []string{},
		focusedPane: 1,
	}
}

// Init initializes the TUI model
func (m *TUIModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForSnapshot())
}

func (m *TUIModel) waitForSnapshot() tea.Cmd {
	ch := m.snapshots
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return feedClosedMsg{}
		}
		return snapshotMsg(s)
	}
}

// Update handles messages in the TUI
func (m *TUIModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case QuitMsg:
		m.quitting = true
		return m, tea.Sequence(tea.ClearScreen, tea.Quit)

	case tea.WindowSizeMsg:
		m.logger.Debug("Updating dimensions", "width", msg.Width, "height", msg.Height)
		m.width = msg.Width
		m.height = msg.Height

	case snapshotMsg:
		m.applySnapshot(game.Snapshot(msg))
		return m, m.waitForSnapshot()

	case feedClosedMsg:
		m.feedClosed = true
		m.AddLogEntry("Match closed")
		return m, nil

	case commandResultMsg:
		m.applyResult(msg)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Sequence(tea.ClearScreen, tea.Quit)
		case "tab":
			m.focusedPane = 1 - m.focusedPane
			if m.focusedPane == 1 {
				m.actionInput.Focus()
			} else {
				m.actionInput.Blur()
			}
		case "enter":
			if m.focusedPane == 1 {
				input := m.actionInput.Value()
				m.actionInput.SetValue("")
				if cmd := m.Submit(input); cmd != nil {
					return m, cmd
				}
				return m, nil
			}
		case "up", "k":
			if m.focusedPane == 0 {
				m.logViewport.ScrollUp(1)
			}
		case "down", "j":
			if m.focusedPane == 0 {
				m.logViewport.ScrollDown(1)
			}
		case "pgup", "b":
			if m.focusedPane == 0 {
				m.logViewport.HalfPageUp()
			}
		case "pgdown", "f":
			if m.focusedPane == 0 {
				m.logViewport.HalfPageDown()
			}
		case "home", "g":
			if m.focusedPane == 0 {
				m.logViewport.GotoTop()
			}
		case "end", "G":
			if m.focusedPane == 0 {
				m.logViewport.GotoBottom()
			}
		}
	}

	var cmd tea.Cmd
	if m.focusedPane == 1 {
		m.actionInput, cmd = m.actionInput.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.logViewport, cmd = m.logViewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *TUIModel) applySnapshot(s game.Snapshot) {
	for _, line := range Describe(m.snapshot, s, !m.haveSnapshot) {
		m.AddLogEntry(line)
	}
	if m.haveSnapshot && s.StaleEvents > m.snapshot.StaleEvents {
		m.logger.Debug("Dropped stale opponent events", "total", s.StaleEvents)
	}
	m.snapshot = s
	m.haveSnapshot = true
}

func (m *TUIModel) applyResult(res commandResultMsg) {
	if res.err != nil {
		m.logger.Warn("Command rejected", "action", res.action, "error", res.err)
		m.setStatus(fmt.Sprintf("%s rejected: %s", res.action, explain(res.err)), true)
		return
	}
	if res.detail != "" {
		m.setStatus(res.detail, false)
		return
	}
	m.setStatus("", false)
}

// explain maps core errors onto something a player can act on.
func explain(err error) string {
	switch {
	case errors.Is(err, game.ErrInvalidWager):
		return "wager must be between 0 and your score"
	case errors.Is(err, game.ErrAlreadyLocked):
		return "your bet is already locked"
	case errors.Is(err, game.ErrForfeitAbandon):
		return "your opponent left, type reset to play again"
	case errors.Is(err, game.ErrPhaseViolation):
		return "not now"
	case errors.Is(err, context.DeadlineExceeded):
		return "match is not responding"
	default:
		return err.Error()
	}
}

func (m *TUIModel) setStatus(status string, isErr bool) {
	m.status = status
	m.statusErr = isErr
}

// Submit handles one line from the action input and returns the command
// that carries it out, if any.
func (m *TUIModel) Submit(input string) tea.Cmd {
	act, err := ParseAction(input)
	if err != nil {
		m.setStatus(err.Error(), true)
		return nil
	}
	m.setStatus("", false)

	switch act.Kind {
	case ActionQuit:
		m.quitting = true
		return tea.Quit
	case ActionHelp:
		for _, line := range helpLines {
			m.AddLogEntry(line)
		}
		return nil
	case ActionSave:
		if m.save == nil {
			m.setStatus("saving is disabled", true)
			return nil
		}
		save := m.save
		return m.run("save", func(ctx context.Context) (string, error) {
			path, err := save(ctx)
			if err != nil {
				return "", err
			}
			return "saved to " + path, nil
		})
	}

	if m.commands == nil || m.feedClosed {
		m.setStatus("match is closed", true)
		return nil
	}
	commands := m.commands

	switch act.Kind {
	case ActionReset:
		return m.run("reset", func(ctx context.Context) (string, error) {
			return "", commands.Reset(ctx)
		})
	case ActionBet:
		amount := act.Amount
		if act.AllIn {
			amount = m.snapshot.Local.Score
		}
		prediction := act.Prediction
		return m.run("bet", func(ctx context.Context) (string, error) {
			return "", commands.LockBet(ctx, amount, prediction)
		})
	default:
		switch m.snapshot.Phase {
		case game.PhaseResults:
			return m.run("continue", func(ctx context.Context) (string, error) {
				return "", commands.DismissResults(ctx)
			})
		case game.PhaseBetting:
			if !m.snapshot.LocalLocked {
				m.setStatus("type h or l and an amount to bet", false)
			}
		case game.PhaseGameOver, game.PhaseAbandoned:
			m.setStatus("type reset to play again or quit to leave", false)
		}
		return nil
	}
}

func (m *TUIModel) run(action string, fn func(ctx context.Context) (string, error)) tea.Cmd {
	parent := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, commandTimeout)
		defer cancel()
		detail, err := fn(ctx)
		return commandResultMsg{action: action, detail: detail, err: err}
	}
}

var helpLines = []string{
	"Commands:",
	"  h [amount]    bet the next roll is higher than the baseline",
	"  l [amount]    bet the next roll is lower (amount may be max)",
	"  enter         continue past the results",
	"  reset         start a new match once this one is over",
	"  save          write a snapshot of the match",
	"  quit          leave the match",
}

// View renders the TUI
func (m *TUIModel) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	actionContent := m.renderActionPane()
	actionHeight := lipgloss.Height(actionContent)
	actionWidth := max(m.width-2, 1)
	actionInner := max(actionHeight-2, 1)

	actionStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(actionWidth).
		Height(actionInner)
	if m.focusedPane == 1 {
		actionStyle = actionStyle.BorderForeground(lipgloss.Color("#04B575"))
	}
	actionPane := actionStyle.Render(actionContent)

	sidebarContent := m.renderSidebarPane()
	sidebarWidth := max(lipgloss.Width(sidebarContent), 25)
	paneHeight := max(m.height-actionHeight-4, 1)

	sidebarPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(sidebarWidth).
		Height(paneHeight).
		Render(sidebarContent)

	logWidth := max(m.width-sidebarWidth-4, 1)
	m.logViewport.SetContent(m.renderLogPane())
	m.logViewport.Width = logWidth
	m.logViewport.Height = paneHeight
	if !m.initialized && logWidth > 1 && paneHeight > 1 {
		m.logViewport.GotoBottom()
		m.initialized = true
	}

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(logWidth).
		Height(paneHeight)
	if m.focusedPane == 0 {
		logStyle = logStyle.BorderForeground(lipgloss.Color("#04B575"))
	}
	logPane := logStyle.Render(m.logViewport.View())

	topRow := lipgloss.JoinHorizontal(lipgloss.Top, logPane, sidebarPane)
	return lipgloss.JoinVertical(lipgloss.Top, topRow, actionPane)
}

func (m *TUIModel) renderLogPane() string {
	return GameLogStyle.Render(strings.Join(m.gameLog, "\n"))
}

func (m *TUIModel) renderSidebarPane() string {
	if !m.haveSnapshot {
		return InfoStyle.Render("Waiting for match...")
	}
	s := m.snapshot
	var b strings.Builder

	b.WriteString(HeaderStyle.Render(fmt.Sprintf(" Round %d ", s.Round)))
	if s.Rush {
		b.WriteString(" ")
		b.WriteString(RushStyle.Render("RUSH"))
	}
	b.WriteString("\n")
	b.WriteString(InfoStyle.Render(s.Phase.String()))
	b.WriteString("\n\n")

	b.WriteString(DieStyle.Render(fmt.Sprintf("%d", s.Baseline)))
	b.WriteString("\n")

	switch s.Phase {
	case game.PhaseBetting:
		style := WarningStyle
		if s.SecondsRemaining <= 3 {
			style = ErrorStyle
		}
		b.WriteString(style.Render(fmt.Sprintf("%ds left", s.SecondsRemaining)))
		b.WriteString("\n")
	case game.PhaseResults:
		if s.LastResult != nil {
			b.WriteString(RoundInfoStyle.Render(fmt.Sprintf("Rolled %d", s.LastResult.Outcome)))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")

	b.WriteString(m.renderPlayer(s.Local, s.LocalLocked, true))
	b.WriteString(m.renderPlayer(s.Opponent, s.OpponentLocked, false))

	if s.MatchID != "" {
		b.WriteString("\n")
		b.WriteString(InfoStyle.Render(s.MatchID))
	}
	return b.String()
}

func (m *TUIModel) renderPlayer(p game.Player, locked, local bool) string {
	name := p.ID
	if local {
		name += " (you)"
	}
	line := fmt.Sprintf("%s: %d", name, p.Score)
	if p.Streak > 0 {
		line += fmt.Sprintf(" x%d", p.Streak)
	}
	if locked && m.snapshot.Phase == game.PhaseBetting {
		line += " " + SuccessStyle.Render("locked")
	}
	return PlayerInfoStyle.Render(line) + "\n"
}

func (m *TUIModel) renderActionPane() string {
	var content strings.Builder

	content.WriteString(m.renderPrompt())
	content.WriteString("\n")

	if m.status != "" {
		style := SuccessStyle
		if m.statusErr {
			style = ErrorStyle
		}
		content.WriteString(style.Render(m.status))
		content.WriteString("\n")
	}

	content.WriteString(m.actionInput.View())
	content.WriteString("\n")

	help := "Tab to scroll log • Enter to submit • help for commands • Ctrl+C to quit"
	if m.focusedPane == 0 {
		help = "Log focused: ↑↓ scroll, PgUp/PgDn half page, Home/End, Tab to input"
	}
	content.WriteString(InfoStyle.Render(help))
	return content.String()
}

func (m *TUIModel) renderPrompt() string {
	if !m.haveSnapshot {
		return RoundInfoStyle.Render("Waiting...")
	}
	s := m.snapshot
	switch s.Phase {
	case game.PhaseBetting:
		if s.LocalBet != nil {
			return RoundInfoStyle.Render(fmt.Sprintf("Locked %d on %s, waiting for %s", s.LocalBet.Amount, s.LocalBet.Prediction, s.Opponent.ID))
		}
		return ActionsStyle.Render(fmt.Sprintf("Higher or lower than %d? Wager 0-%d", s.Baseline, s.Local.Score))
	case game.PhaseRevealing:
		return RoundInfoStyle.Render("Rolling...")
	case game.PhaseResults:
		return RoundInfoStyle.Render("Enter to continue")
	case game.PhaseGameOver:
		return WarningStyle.Render("Game over. reset to play again, quit to leave")
	case game.PhaseAbandoned:
		return WarningStyle.Render("Opponent left. reset to play again, quit to leave")
	}
	return ""
}

// AddLogEntry adds an entry to the game log
func (m *TUIModel) AddLogEntry(entry string) {
	m.gameLog = append(m.gameLog, entry)
	m.logViewport.SetContent(strings.Join(m.gameLog, "\n"))
	if m.logViewport.Height > 0 && m.logViewport.Width > 0 {
		m.logViewport.GotoBottom()
	}
}

// Log returns a copy of the game log.
func (m *TUIModel) Log() []string {
	out := make([]string, len(m.gameLog))
	copy(out, m.gameLog)
	return out
}

// Status returns the current status line and whether it is an error.
func (m *TUIModel) Status() (string, bool) {
	return m.status, m.statusErr
}

// Snapshot returns the last snapshot rendered.
func (m *TUIModel) Snapshot() game.Snapshot {
	return m.snapshot
}
