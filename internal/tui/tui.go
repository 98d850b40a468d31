// Package tui provides the Bubble Tea terminal interface for docchat.
package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textarea"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/docchat/docchat/internal/chat"
	"github.com/docchat/docchat/internal/rag"
)

// State represents the TUI state machine.
type State int

// TUI state machine states.
const (
	StateInput    State = iota // Awaiting user input
	StateThinking              // Request in flight
)

// Memory bounds to prevent unbounded growth.
const (
	maxMessages = 100 // Maximum display messages stored
	maxHistory  = 100 // Maximum input history entries
)

// responseTimeout bounds a single question round-trip.
const responseTimeout = 2 * time.Minute

// Display role constants.
const (
	roleUser      = "user"
	roleAssistant = "assistant"
	roleSystem    = "system"
	roleError     = "error"
)

// Layout constants for viewport height calculation.
const (
	separatorLines = 2 // Two separator lines (above and below input)
	helpLines      = 1 // Help bar height
	promptLines    = 1 // Prompt prefix line
	minViewport    = 3 // Minimum viewport height

	sidebarWidth    = 30  // Citations panel width
	sidebarMinTotal = 100 // Terminal width below which the panel is hidden
)

// Message represents one display entry in the conversation area.
type Message struct {
	Role string // "user", "assistant", "system", "error"
	Text string
}

// TUI is the Bubble Tea model for the docchat terminal interface.
type TUI struct {
	// Input (textarea for multi-line support, Shift+Enter for newline)
	input      textarea.Model
	history    []string
	historyIdx int

	// State
	state     State
	lastCtrlC time.Time

	// Output
	spinner  spinner.Model
	viewBuf  strings.Builder // Reusable buffer for View() to reduce allocations
	messages []Message

	// Citations of the most recent answer, shown in the side panel.
	citations []rag.Citation

	// Scrollable message viewport
	viewport viewport.Model

	// Help bar for keyboard shortcuts
	help help.Model
	keys keyMap

	// In-flight request management
	askCancel context.CancelFunc

	// Dependencies (direct, no interface)
	bot          *chat.Bot
	conversation *chat.History
	ctx          context.Context
	ctxCancel    context.CancelFunc // For canceling all operations on exit

	// Dimensions
	width  int
	height int

	// Styles
	styles Styles

	// Markdown rendering (nil = graceful degradation to plain text)
	markdown *markdownRenderer
}

// addMessage appends a display message and enforces the maxMessages bound.
func (t *TUI) addMessage(msg Message) {
	t.messages = append(t.messages, msg)
	if len(t.messages) > maxMessages {
		t.messages = t.messages[len(t.messages)-maxMessages:]
	}
}

// New creates a TUI model for chat interaction.
// Returns error if required dependencies are nil.
//
// IMPORTANT: ctx MUST be the same context passed to tea.WithContext()
// to ensure consistent cancellation behavior.
func New(ctx context.Context, bot *chat.Bot, conversation *chat.History) (*TUI, error) {
	if bot == nil {
		return nil, errors.New("tui.New: bot is required")
	}
	if conversation == nil {
		return nil, errors.New("tui.New: conversation history is required")
	}
	if ctx == nil {
		return nil, errors.New("tui.New: ctx is required")
	}

	// Create cancellable context for cleanup on exit
	ctx, cancel := context.WithCancel(ctx)

	// Enter submits, Shift+Enter adds newline (default behavior)
	ta := textarea.New()
	ta.Placeholder = "Ask about your documents..."
	ta.SetHeight(1)
	ta.SetWidth(120) // Updated on WindowSizeMsg
	ta.MaxWidth = 0
	ta.ShowLineNumbers = false

	// Minimal styling, no background colors
	cleanStyle := textarea.StyleState{
		Base:        lipgloss.NewStyle(),
		Text:        lipgloss.NewStyle(),
		Placeholder: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Prompt:      lipgloss.NewStyle(),
	}
	ta.SetStyles(textarea.Styles{
		Focused: cleanStyle,
		Blurred: cleanStyle,
	})
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	// Viewport for scrollable history. Built-in key handling is disabled —
	// keys are routed explicitly in handleKey to avoid conflicts with the
	// textarea and input history navigation.
	vp := viewport.New(viewport.WithWidth(80), viewport.WithHeight(20))
	vp.MouseWheelEnabled = true
	vp.SoftWrap = true
	vp.KeyMap = viewport.KeyMap{}

	h := help.New()

	return &TUI{
		bot:          bot,
		conversation: conversation,
		ctx:          ctx,
		ctxCancel:    cancel,
		input:        ta,
		spinner:      sp,
		viewport:     vp,
		help:         h,
		keys:         newKeyMap(),
		styles:       DefaultStyles(),
		history:      make([]string, 0, maxHistory),
		markdown:     newMarkdownRenderer(80),
		width:        80, // Default width until WindowSizeMsg arrives
	}, nil
}

// Init implements tea.Model.
func (t *TUI) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		t.spinner.Tick,
		t.input.Focus(),
	)
}

// Update implements tea.Model.
func (t *TUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		return t.handleKey(msg)

	case tea.WindowSizeMsg:
		t.width = msg.Width
		t.height = msg.Height

		inputHeight := t.input.Height() + promptLines
		fixedHeight := separatorLines + inputHeight + helpLines
		vpHeight := max(msg.Height-fixedHeight, minViewport)

		vpWidth := msg.Width
		if t.sidebarVisible() {
			vpWidth -= sidebarWidth
		}

		t.viewport.SetWidth(vpWidth)
		t.viewport.SetHeight(vpHeight)
		t.input.SetWidth(msg.Width - 4) // Room for "> " prompt
		t.help.SetWidth(msg.Width)
		t.markdown.UpdateWidth(vpWidth)

		t.rebuildViewportContent()
		return t, nil

	case tea.MouseWheelMsg:
		var cmd tea.Cmd
		t.viewport, cmd = t.viewport.Update(msg)
		return t, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		t.spinner, cmd = t.spinner.Update(msg)
		if t.state == StateThinking {
			t.rebuildViewportContent()
		}
		return t, cmd

	case responseMsg:
		t.state = StateInput
		t.clearAskCancel()

		t.addMessage(Message{Role: roleAssistant, Text: msg.answer})
		t.citations = msg.citations
		t.rebuildViewportContent()
		t.viewport.GotoBottom()
		return t, t.input.Focus()

	case errorMsg:
		t.state = StateInput
		t.clearAskCancel()

		switch {
		case errors.Is(msg.err, context.Canceled):
			t.addMessage(Message{Role: roleSystem, Text: "(Canceled)"})
		case errors.Is(msg.err, context.DeadlineExceeded):
			t.addMessage(Message{Role: roleError, Text: "Request timed out (>2 min). Try a shorter question."})
		default:
			t.addMessage(Message{Role: roleError, Text: msg.err.Error()})
		}
		t.rebuildViewportContent()
		t.viewport.GotoBottom()
		return t, t.input.Focus()
	}

	var cmd tea.Cmd
	t.input, cmd = t.input.Update(msg)
	return t, cmd
}

// View implements tea.Model.
// Uses AltScreen with a scrollable viewport and a citations side panel.
func (t *TUI) View() tea.View {
	t.viewBuf.Reset()

	main := t.viewport.View()
	if t.sidebarVisible() {
		main = lipgloss.JoinHorizontal(lipgloss.Top, main, t.renderSidebar())
	}
	_, _ = t.viewBuf.WriteString(main)
	_, _ = t.viewBuf.WriteString("\n")

	_, _ = t.viewBuf.WriteString(t.renderSeparator())
	_, _ = t.viewBuf.WriteString("\n")

	// Input prompt stays visible and usable in every state
	_, _ = t.viewBuf.WriteString(t.styles.Prompt.Render("> "))
	_, _ = t.viewBuf.WriteString(t.input.View())
	_, _ = t.viewBuf.WriteString("\n")

	_, _ = t.viewBuf.WriteString(t.renderSeparator())
	_, _ = t.viewBuf.WriteString("\n")

	_, _ = t.viewBuf.WriteString(t.renderStatusBar())

	v := tea.NewView(t.viewBuf.String())
	v.AltScreen = true
	return v
}

// sidebarVisible reports whether the terminal is wide enough for the
// citations panel.
func (t *TUI) sidebarVisible() bool {
	return t.width >= sidebarMinTotal
}

// rebuildViewportContent reconstructs the viewport content from messages and
// state. Called when messages or state change.
func (t *TUI) rebuildViewportContent() {
	var b strings.Builder

	_, _ = b.WriteString(t.styles.RenderBanner())
	_, _ = b.WriteString("\n")
	_, _ = b.WriteString(t.styles.RenderWelcomeTips())
	_, _ = b.WriteString("\n")

	// Messages (already bounded by addMessage)
	for _, msg := range t.messages {
		switch msg.Role {
		case roleUser:
			_, _ = b.WriteString(t.styles.User.Render("You> "))
			_, _ = b.WriteString(msg.Text)
		case roleAssistant:
			_, _ = b.WriteString(t.styles.Assistant.Render("Docs> "))
			_, _ = b.WriteString(t.markdown.Render(msg.Text))
		case roleSystem:
			_, _ = b.WriteString(t.styles.System.Render(msg.Text))
		case roleError:
			_, _ = b.WriteString(t.styles.Error.Render("Error: " + msg.Text))
		}
		_, _ = b.WriteString("\n\n")
	}

	if t.state == StateThinking {
		_, _ = b.WriteString(t.spinner.View())
		_, _ = b.WriteString(" Thinking...\n\n")
	}

	t.viewport.SetContent(b.String())
}

// renderSidebar renders the citation panel for the most recent answer:
// each source once, with the pages that supported the answer.
func (t *TUI) renderSidebar() string {
	var b strings.Builder

	_, _ = b.WriteString(t.styles.SidebarTitle.Render("Sources"))
	_, _ = b.WriteString("\n\n")

	if len(t.citations) == 0 {
		_, _ = b.WriteString(t.styles.System.Render("(none yet)"))
	}
	for _, c := range t.citations {
		_, _ = b.WriteString(t.styles.SidebarSource.Render("• " + c.Source))
		_, _ = b.WriteString("\n")
		if len(c.Pages) > 0 {
			_, _ = b.WriteString(t.styles.SidebarPages.Render("  pages: " + joinPages(c.Pages)))
			_, _ = b.WriteString("\n")
		}
	}

	return t.styles.Sidebar.
		Width(sidebarWidth - 2).
		Height(t.viewport.Height() - 2).
		Render(b.String())
}

// renderSeparator returns a horizontal line separator.
func (t *TUI) renderSeparator() string {
	width := t.width
	if width <= 0 {
		width = 80
	}
	return t.styles.Separator.Render(strings.Repeat("─", width))
}

// renderStatusBar returns state-appropriate keyboard shortcut help.
func (t *TUI) renderStatusBar() string {
	var bindings []key.Binding
	switch t.state {
	case StateInput:
		bindings = []key.Binding{
			t.keys.Submit, t.keys.NewLine, t.keys.History,
			t.keys.Cancel, t.keys.Quit, t.keys.ScrollUp,
		}
	case StateThinking:
		bindings = []key.Binding{
			t.keys.EscCancel, t.keys.Cancel,
			t.keys.ScrollUp, t.keys.ScrollDown,
		}
	}
	return t.help.ShortHelpView(bindings)
}
