package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	"charm.land/bubbles/v2/textarea"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"github.com/firebase/genkit/go/ai"
	"go.uber.org/goleak"

	"github.com/docchat/docchat/internal/chat"
	"github.com/docchat/docchat/internal/log"
	"github.com/docchat/docchat/internal/rag"
)

var errStub = errors.New("stub failure")

// goleakOptions filters persistent goroutines that are expected to exist.
func goleakOptions() []goleak.Option {
	return []goleak.Option{
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("net/http.(*http2clientConnReadLoop).run"),
	}
}

// stubAsker answers every question with a fixed response.
type stubAsker struct {
	answer string
	docs   []*ai.Document
	err    error
	calls  int
}

func (s *stubAsker) Ask(_ context.Context, _ string, _ []*ai.Message) (string, []*ai.Document, error) {
	s.calls++
	if s.err != nil {
		return "", nil, s.err
	}
	return s.answer, s.docs, nil
}

// newTestTUI creates a TUI with an initialized textarea and a stub bot.
func newTestTUI(t *testing.T, asker *stubAsker) *TUI {
	t.Helper()
	if asker == nil {
		asker = &stubAsker{answer: "ok"}
	}
	bot, err := chat.NewBot(asker, log.NewNop())
	if err != nil {
		t.Fatalf("NewBot: %v", err)
	}

	ta := textarea.New()
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	return &TUI{
		state:        StateInput,
		input:        ta,
		viewport:     viewport.New(viewport.WithWidth(80), viewport.WithHeight(20)),
		history:      make([]string, 0),
		styles:       DefaultStyles(),
		markdown:     newMarkdownRenderer(80),
		bot:          bot,
		conversation: chat.NewHistory(),
		ctx:          context.Background(),
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(context.Background(), nil, chat.NewHistory()); err == nil {
		t.Error("expected error for nil bot")
	}
	bot, _ := chat.NewBot(&stubAsker{}, log.NewNop())
	if _, err := New(context.Background(), bot, nil); err == nil {
		t.Error("expected error for nil history")
	}
	//lint:ignore SA1012 intentionally testing nil context handling
	if _, err := New(nil, bot, chat.NewHistory()); err == nil { //nolint:staticcheck
		t.Error("expected error for nil context")
	}
}

func TestTUI_Init(t *testing.T) {
	defer goleak.VerifyNone(t, goleakOptions()...)

	tui := newTestTUI(t, nil)
	if cmd := tui.Init(); cmd == nil {
		t.Error("Init should return a command (blink + spinner tick)")
	}
}

func TestTUI_SubmitEmptyInputIsNoOp(t *testing.T) {
	defer goleak.VerifyNone(t, goleakOptions()...)

	asker := &stubAsker{answer: "never"}
	tui := newTestTUI(t, asker)

	for _, input := range []string{"", "   ", "\t"} {
		tui.input.SetValue(input)
		_, cmd := tui.handleSubmit()

		if cmd != nil {
			t.Errorf("submit of %q returned a command, want nil", input)
		}
		if tui.state != StateInput {
			t.Errorf("submit of %q changed state to %v", input, tui.state)
		}
		if len(tui.messages) != 0 {
			t.Errorf("submit of %q added display messages", input)
		}
	}
	if asker.calls != 0 {
		t.Error("pipeline must not run for empty input")
	}
	if tui.conversation.Len() != 0 {
		t.Error("conversation history must stay empty")
	}
}

func TestTUI_SubmitStartsRequest(t *testing.T) {
	tui := newTestTUI(t, nil)
	tui.input.SetValue("what is in chapter 2?")

	_, cmd := tui.handleSubmit()

	if cmd == nil {
		t.Fatal("submit should return a command")
	}
	if tui.state != StateThinking {
		t.Errorf("state = %v, want StateThinking", tui.state)
	}
	if len(tui.messages) != 1 || tui.messages[0].Role != roleUser {
		t.Errorf("messages = %+v, want single user message", tui.messages)
	}
	if tui.input.Value() != "" {
		t.Error("input should be cleared after submit")
	}
	if len(tui.history) != 1 || tui.history[0] != "what is in chapter 2?" {
		t.Errorf("input history = %v", tui.history)
	}
	tui.cancelAsk()
}

func TestTUI_ResponseMsg(t *testing.T) {
	tui := newTestTUI(t, nil)
	tui.state = StateThinking

	citations := []rag.Citation{{Source: "guide.md", Pages: []int{1, 4}}}
	model, _ := tui.Update(responseMsg{answer: "the answer", citations: citations})
	tui = model.(*TUI)

	if tui.state != StateInput {
		t.Errorf("state = %v, want StateInput", tui.state)
	}
	if len(tui.messages) != 1 || tui.messages[0].Role != roleAssistant {
		t.Fatalf("messages = %+v, want single assistant message", tui.messages)
	}
	if len(tui.citations) != 1 || tui.citations[0].Source != "guide.md" {
		t.Errorf("citations = %+v", tui.citations)
	}
}

func TestTUI_ErrorMsg(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantRole string
		wantText string
	}{
		{"canceled", context.Canceled, roleSystem, "(Canceled)"},
		{"timeout", context.DeadlineExceeded, roleError, "timed out"},
		{"other", errStub, roleError, "stub failure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tui := newTestTUI(t, nil)
			tui.state = StateThinking

			model, _ := tui.Update(errorMsg{err: tt.err})
			tui = model.(*TUI)

			if tui.state != StateInput {
				t.Errorf("state = %v, want StateInput", tui.state)
			}
			if len(tui.messages) != 1 {
				t.Fatalf("messages = %+v, want 1", tui.messages)
			}
			if tui.messages[0].Role != tt.wantRole {
				t.Errorf("role = %s, want %s", tui.messages[0].Role, tt.wantRole)
			}
			if !strings.Contains(tui.messages[0].Text, tt.wantText) {
				t.Errorf("text = %q, want substring %q", tui.messages[0].Text, tt.wantText)
			}
		})
	}
}

func TestTUI_SlashCommands(t *testing.T) {
	tests := []struct {
		name     string
		cmd      string
		wantMsgs int
	}{
		{"help", cmdHelp, 1},
		{"sources", cmdSources, 1},
		{"unknown", "/bogus", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tui := newTestTUI(t, nil)
			_, cmd := tui.handleSlashCommand(tt.cmd)
			if cmd != nil {
				t.Error("non-exit command should not return a command")
			}
			if len(tui.messages) != tt.wantMsgs {
				t.Errorf("messages = %d, want %d", len(tui.messages), tt.wantMsgs)
			}
		})
	}
}

func TestTUI_SlashClear(t *testing.T) {
	tui := newTestTUI(t, nil)
	tui.addMessage(Message{Role: roleUser, Text: "old"})
	tui.citations = []rag.Citation{{Source: "a"}}
	tui.conversation.Append(chat.RoleHuman, "old")

	tui.handleSlashCommand(cmdClear)

	if len(tui.messages) != 0 || len(tui.citations) != 0 {
		t.Error("clear must drop display messages and citations")
	}
	if tui.conversation.Len() != 0 {
		t.Error("clear must reset the conversation history")
	}
}

func TestTUI_SlashExitQuits(t *testing.T) {
	for _, cmdStr := range []string{cmdExit, cmdQuit} {
		tui := newTestTUI(t, nil)
		tui.ctxCancel = func() {}
		_, cmd := tui.handleSlashCommand(cmdStr)
		if cmd == nil {
			t.Errorf("%s should return the quit command", cmdStr)
		}
	}
}

func TestTUI_AddMessageBound(t *testing.T) {
	tui := newTestTUI(t, nil)
	for i := 0; i < maxMessages+10; i++ {
		tui.addMessage(Message{Role: roleUser, Text: "m"})
	}
	if len(tui.messages) != maxMessages {
		t.Errorf("messages = %d, want capped at %d", len(tui.messages), maxMessages)
	}
}

func TestTUI_NavigateHistory(t *testing.T) {
	tui := newTestTUI(t, nil)
	tui.history = []string{"first", "second"}
	tui.historyIdx = 2

	tui.navigateHistory(-1)
	if got := tui.input.Value(); got != "second" {
		t.Errorf("input = %q, want %q", got, "second")
	}
	tui.navigateHistory(-1)
	if got := tui.input.Value(); got != "first" {
		t.Errorf("input = %q, want %q", got, "first")
	}
	// Below the start clamps
	tui.navigateHistory(-1)
	if got := tui.input.Value(); got != "first" {
		t.Errorf("input = %q, want clamped %q", got, "first")
	}
	// Back past the end clears the input
	tui.navigateHistory(1)
	tui.navigateHistory(1)
	if got := tui.input.Value(); got != "" {
		t.Errorf("input = %q, want empty", got)
	}
}

func TestTUI_SidebarVisibility(t *testing.T) {
	tui := newTestTUI(t, nil)

	tui.width = 80
	if tui.sidebarVisible() {
		t.Error("sidebar should be hidden on narrow terminals")
	}
	tui.width = 120
	if !tui.sidebarVisible() {
		t.Error("sidebar should be visible on wide terminals")
	}
}

func TestTUI_DescribeSources(t *testing.T) {
	tui := newTestTUI(t, nil)

	if got := tui.describeSources(); !strings.Contains(got, "No sources") {
		t.Errorf("describeSources() = %q", got)
	}

	tui.citations = []rag.Citation{
		{Source: "a.md", Pages: []int{1, 3}},
		{Source: "b.md"},
	}
	got := tui.describeSources()
	if !strings.Contains(got, "a.md (pages 1, 3)") || !strings.Contains(got, "b.md") {
		t.Errorf("describeSources() = %q", got)
	}
}

func TestTUI_EscapeCancelsThinking(t *testing.T) {
	tui := newTestTUI(t, nil)
	tui.state = StateThinking
	canceled := false
	tui.askCancel = func() { canceled = true }

	tui.handleKey(tea.KeyPressMsg{Code: tea.KeyEscape})

	if tui.state != StateInput {
		t.Errorf("state = %v, want StateInput", tui.state)
	}
	if !canceled {
		t.Error("escape must cancel the in-flight request")
	}
}

func TestJoinPages(t *testing.T) {
	if got := joinPages([]int{1, 3, 7}); got != "1, 3, 7" {
		t.Errorf("joinPages = %q", got)
	}
	if got := joinPages(nil); got != "" {
		t.Errorf("joinPages(nil) = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("0123456789abc", 10); got != "0123456789…" {
		t.Errorf("truncate = %q", got)
	}
}
