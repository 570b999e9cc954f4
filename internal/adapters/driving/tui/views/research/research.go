// Package research provides the question and answer view for the TUI.
package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/sercha-research/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/sercha-research/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/sercha-research/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/sercha-research/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sercha-research/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-research/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-research/internal/core/domain"
	"github.com/custodia-labs/sercha-research/internal/core/ports/driving"
)

// stageBuffer bounds progress messages queued between the pipeline and the UI.
const stageBuffer = 16

// View represents the research view with question input, answer, evidence and status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QuestionInput
	list      *list.EvidenceList
	statusbar *status.Bar

	researchService driving.ResearchService
	ctx             context.Context

	mode       messages.Mode
	question   string
	result     *domain.ResearchResult
	quick      *domain.QuickAnswer
	deep       *domain.DeepResearchResult
	progress   <-chan messages.StageChanged
	running    bool
	showTrace  bool
	focusInput bool // true = typing a question, false = reading the answer

	width  int
	height int
	ready  bool
	err    error
}

// NewView creates a new research view.
func NewView(s *styles.Styles, km *keymap.KeyMap, researchService driving.ResearchService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:          s,
		keymap:          km,
		input:           input.NewQuestionInput(s),
		list:            list.NewEvidenceList(s),
		statusbar:       status.NewBar(s, km),
		researchService: researchService,
		ctx:             context.Background(),
		width:           80,
		height:          24,
		focusInput:      true,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the research view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.StageChanged:
		if !v.running {
			return v, nil
		}
		v.statusbar.SetStage(msg.Round, msg.State)
		return v, waitForStage(v.progress)

	case messages.ResearchCompleted:
		v.handleCompleted(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	if v.focusInput {
		v.input, cmd = v.input.Update(msg)
	}
	return v, cmd
}

// handleKeyMsg processes keyboard input.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if msg.Type == tea.KeyEsc {
		if v.list.Expanded() {
			v.list.ToggleExpanded()
			return v, nil
		}
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}

	if v.focusInput {
		switch msg.Type {
		case tea.KeyEnter:
			question := strings.TrimSpace(v.input.Value())
			if question == "" || v.running {
				return v, nil
			}
			return v, v.submit(question)
		case tea.KeyTab:
			v.cycleMode()
			return v, nil
		default:
			var cmd tea.Cmd
			v.input, cmd = v.input.Update(msg)
			return v, cmd
		}
	}

	// Answer mode
	if msg.Type == tea.KeyEnter {
		v.list.ToggleExpanded()
		return v, nil
	}

	switch msg.String() {
	case "up", "k", "down", "j":
		if !v.list.Expanded() {
			v.list, _ = v.list.Update(msg)
		}
	case "n":
		v.focusInput = true
		v.input.SetValue("")
		return v, v.input.Focus()
	case "t":
		v.showTrace = !v.showTrace
	}
	return v, nil
}

func (v *View) cycleMode() {
	v.mode = v.mode.Next()
	v.input.SetLabel(modeLabel(v.mode))
	v.input.SetWidth(v.width)
	v.statusbar.SetMessage("Mode: " + v.mode.String())
}

func modeLabel(m messages.Mode) string {
	switch m {
	case messages.ModeQuick:
		return "Quick"
	case messages.ModeDeep:
		return "Deep"
	default:
		return "Research"
	}
}

// submit starts the selected operation in the background.
func (v *View) submit(question string) tea.Cmd {
	v.running = true
	v.question = question
	v.err = nil
	v.result, v.quick, v.deep = nil, nil, nil
	v.list.SetItems(nil)
	v.focusInput = false
	v.input.Blur()
	v.statusbar.Clear()
	v.statusbar.SetState(status.StateResearching)

	if v.researchService == nil {
		return func() tea.Msg {
			return messages.ResearchCompleted{Question: question, Err: ErrNoResearchService}
		}
	}

	mode := v.mode
	svc := v.researchService
	ctx := v.ctx

	if mode != messages.ModeResearch {
		return func() tea.Msg {
			msg := messages.ResearchCompleted{Question: question}
			if mode == messages.ModeQuick {
				msg.Quick, msg.Err = svc.Ask(ctx, question, 0)
			} else {
				msg.Deep, msg.Err = svc.DeepResearch(ctx, question, 0)
			}
			return msg
		}
	}

	reporter, ok := svc.(driving.ProgressReporter)
	if !ok {
		v.progress = nil
		return func() tea.Msg {
			res, err := svc.AnswerQuestion(ctx, question, domain.AnswerOptions{RequireCitations: true})
			return messages.ResearchCompleted{Question: question, Result: res, Err: err}
		}
	}

	ch := make(chan messages.StageChanged, stageBuffer)
	v.progress = ch
	reporter.SetProgress(func(round int, state domain.SessionState) {
		select {
		case ch <- messages.StageChanged{Round: round, State: state}:
		default:
			// The UI is behind; the next stage supersedes this one.
		}
	})

	run := func() tea.Msg {
		defer close(ch)
		defer reporter.SetProgress(nil)
		res, err := svc.AnswerQuestion(ctx, question, domain.AnswerOptions{RequireCitations: true})
		return messages.ResearchCompleted{Question: question, Result: res, Err: err}
	}
	return tea.Batch(run, waitForStage(ch))
}

// waitForStage delivers the next progress message, or nothing once the run ends.
func waitForStage(ch <-chan messages.StageChanged) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

// handleCompleted stores the outcome of a run.
func (v *View) handleCompleted(msg messages.ResearchCompleted) {
	v.running = false
	v.progress = nil

	if msg.Err != nil {
		if errors.Is(msg.Err, domain.ErrInsufficientEvidence) {
			v.setError(fmt.Errorf("%w: index documents before asking", msg.Err))
		} else {
			v.setError(msg.Err)
		}
		v.focusInput = true
		v.input.Focus()
		return
	}

	v.err = nil
	v.result, v.quick, v.deep = msg.Result, msg.Quick, msg.Deep
	rounds := 0

	switch {
	case msg.Result != nil:
		v.list.SetBundles(msg.Result.Evidence)
		rounds = msg.Result.Rounds
	case msg.Quick != nil:
		v.list.SetItems(citationItems(msg.Quick.Citations))
	case msg.Deep != nil:
		v.list.SetItems(msg.Deep.EvidenceUsed)
	}

	v.statusbar.SetState(status.StateAnswered)
	v.statusbar.SetStage(rounds, domain.StateDone)
	v.statusbar.SetEvidenceCount(v.list.Count())
	v.statusbar.SetMessage("")
	v.focusInput = false
	v.input.Blur()
}

// citationItems adapts quick-answer citations for the evidence list.
func citationItems(citations []domain.Citation) []domain.EvidenceItem {
	items := make([]domain.EvidenceItem, len(citations))
	for i, c := range citations {
		items[i] = domain.EvidenceItem{
			Chunk: domain.Chunk{ID: c.Label, SourceID: c.SourceID, Text: c.Excerpt},
			Score: c.Score,
		}
	}
	return items
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
}

// View renders the research view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 12)
	sections = append(sections,
		v.styles.Title.Render("Sercha Research"),
		v.styles.Muted.Render(fmt.Sprintf("Mode: %s  [tab] change", v.mode)),
		"",
		v.input.View(),
		"",
	)

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}

	if v.running {
		sections = append(sections, v.styles.Stage.Render("Working on: ")+v.styles.Normal.Render(v.question), "")
	}

	if answer := v.renderAnswer(); answer != "" {
		sections = append(sections, answer, "")
		if v.showTrace {
			sections = append(sections, v.renderTrace(), "")
		}
		sections = append(sections, v.list.View(), "")
	}

	sections = append(sections, v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (v *View) renderAnswer() string {
	box := v.styles.Answer.Width(max(v.width-4, 20))

	switch {
	case v.result != nil:
		verdict := v.result.Verdict
		lines := []string{box.Render(verdict.FinalAnswer)}

		score := v.styles.Confidence(verdict.FinalConfidence).Render(fmt.Sprintf("%.2f", verdict.FinalConfidence))
		lines = append(lines, fmt.Sprintf("Confidence %s  Rounds %d", score, v.result.Rounds))
		if len(verdict.Citations) > 0 {
			lines = append(lines, v.styles.Muted.Render("Cites: "+strings.Join(verdict.Citations, ", ")))
		}
		if v.result.InsufficientEvidence {
			lines = append(lines, v.styles.Warning.Render("No relevant evidence was found in the index."))
		}
		if verdict.NeedIterate {
			lines = append(lines, v.styles.Warning.Render("Round cap reached before the reviewer was satisfied."))
		}
		for _, issue := range verdict.Issues {
			lines = append(lines, v.styles.Warning.Render("  - "+issue))
		}
		return strings.Join(lines, "\n")

	case v.quick != nil:
		return box.Render(v.quick.Answer)

	case v.deep != nil:
		return box.Render(v.deep.Analysis)
	}
	return ""
}

func (v *View) renderTrace() string {
	if v.result == nil || len(v.result.Trace) == 0 {
		return v.styles.Muted.Render("No trace")
	}

	lines := []string{v.styles.Subtitle.Render("Trace")}
	for _, rt := range v.result.Trace {
		line := fmt.Sprintf("  Round %d  %d sub-tasks (%s)  %d evidence  draft %.2f  iterate %t  %s",
			rt.Round, len(rt.Plan.SubTasks), rt.Plan.Strategy, rt.EvidenceCount,
			rt.Draft.Confidence, rt.Verdict.NeedIterate, rt.Duration.Round(time.Millisecond))
		lines = append(lines, v.styles.Normal.Render(line))
	}
	return strings.Join(lines, "\n")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.list.SetDimensions(width, max(height-16, 4)) // header, input, answer summary, status
	v.statusbar.SetWidth(width)
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Mode returns the selected operation.
func (v *View) Mode() messages.Mode {
	return v.mode
}

// SetMode selects the operation for the next question.
func (v *View) SetMode(m messages.Mode) {
	v.mode = m
	v.input.SetLabel(modeLabel(m))
}

// Query returns the text currently in the input.
func (v *View) Query() string {
	return v.input.Value()
}

// SetQuery sets the input text.
func (v *View) SetQuery(q string) {
	v.input.SetValue(q)
}

// Question returns the last submitted question.
func (v *View) Question() string {
	return v.question
}

// Result returns the last research result, if any.
func (v *View) Result() *domain.ResearchResult {
	return v.result
}

// Quick returns the last quick answer, if any.
func (v *View) Quick() *domain.QuickAnswer {
	return v.quick
}

// Deep returns the last deep research report, if any.
func (v *View) Deep() *domain.DeepResearchResult {
	return v.deep
}

// Evidence returns the evidence shown in the list.
func (v *View) Evidence() []domain.EvidenceItem {
	return v.list.Items()
}

// SelectedIndex returns the selected evidence index.
func (v *View) SelectedIndex() int {
	return v.list.Selected()
}

// Running reports whether a question is being answered.
func (v *View) Running() bool {
	return v.running
}

// ShowingTrace reports whether the round trace is visible.
func (v *View) ShowingTrace() bool {
	return v.showTrace
}

// InputFocused returns whether the input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// Reset returns the view to input mode, keeping the selected mode.
// A run in flight still delivers its result.
func (v *View) Reset() {
	v.focusInput = true
	v.input.Focus()
	v.input.SetValue("")
	v.list.SetItems(nil)
	v.result, v.quick, v.deep = nil, nil, nil
	v.showTrace = false
	v.err = nil
	v.statusbar.Clear()
	if v.running {
		v.statusbar.SetState(status.StateResearching)
	}
}
