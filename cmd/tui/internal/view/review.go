package view

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledgermatch/internal/matching"
)

type reviewState int

const (
	reviewStateLoading reviewState = iota
	reviewStateReviewing
	reviewStateConfirming
	reviewStateActing
	reviewStateDone
)

// ReviewModel drives the flagged-match queue: every match the import pipeline
// was not confident enough to merge automatically, one at a time.
type ReviewModel struct {
	CommonModel
	matchingService *matching.Service
	userID          uuid.UUID

	state reviewState

	queue      []*matching.Match
	current    *matching.Match
	totalCount int

	form    *huh.Form
	approve bool
	spinner spinner.Model

	status string
	err    error
}

func NewReviewModel(matchSvc *matching.Service, userID uuid.UUID) ReviewModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return ReviewModel{
		matchingService: matchSvc,
		userID:          userID,
		state:           reviewStateLoading,
		spinner:         s,
	}
}

func (m ReviewModel) Title() string { return "Review Flagged Matches" }

func (m ReviewModel) ShortHelp() string {
	switch m.state {
	case reviewStateReviewing:
		return "a: approve | r: reject | s: skip | Esc: back"
	case reviewStateDone:
		return "Esc: back to menu"
	}

	return "Esc: back"
}

func (m ReviewModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadFlaggedCmd())
}

func (m ReviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.updateKey(msg)

	case flaggedLoadedMsg:
		if msg.err != nil {
			m.state = reviewStateDone
			m.err = msg.err
			m.status = fmt.Sprintf("Error loading matches: %v", msg.err)

			return m, nil
		}

		m.queue = msg.matches
		m.totalCount = len(m.queue)
		m.nextMatch()

		return m, nil

	case reviewResultMsg:
		if msg.err != nil {
			m.state = reviewStateReviewing
			m.status = fmt.Sprintf("Error: %v", msg.err)

			return m, nil
		}

		m.nextMatch()

		return m, nil
	}

	if m.state == reviewStateConfirming {
		return m.updateConfirming(msg)
	}

	if m.state == reviewStateLoading || m.state == reviewStateActing {
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd
	}

	return m, nil
}

func (m ReviewModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEsc {
		if m.state == reviewStateConfirming {
			m.state = reviewStateReviewing
			return m, nil
		}

		return m, Back
	}

	if m.state == reviewStateConfirming {
		return m.updateConfirming(msg)
	}

	if m.state != reviewStateReviewing || m.current == nil {
		return m, nil
	}

	switch msg.String() {
	case "a":
		m.approve = true
		m.form = m.buildConfirmForm()
		m.state = reviewStateConfirming

		return m, m.form.Init()
	case "r":
		m.state = reviewStateActing
		return m, tea.Batch(m.spinner.Tick, m.rejectCmd(m.current.ID))
	case "s":
		m.nextMatch()
		return m, nil
	}

	return m, nil
}

func (m ReviewModel) updateConfirming(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	if !m.approve {
		m.state = reviewStateReviewing
		return m, nil
	}

	m.state = reviewStateActing

	return m, tea.Batch(m.spinner.Tick, m.approveCmd(m.current.ID))
}

func (m *ReviewModel) buildConfirmForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Merge into existing transaction? (%d%% confidence)", m.current.Confidence)).
				Affirmative("Merge").
				Negative("Cancel").
				Value(&m.approve),
		),
	).WithWidth(60).WithShowHelp(false)
}

func (m *ReviewModel) nextMatch() {
	if len(m.queue) == 0 {
		m.current = nil
		m.state = reviewStateDone

		if m.totalCount == 0 {
			m.status = "No flagged matches to review."
		} else {
			m.status = "All done!"
		}

		return
	}

	m.current = m.queue[0]
	m.queue = m.queue[1:]
	m.state = reviewStateReviewing

	reviewed := m.totalCount - len(m.queue)
	m.status = fmt.Sprintf("Reviewing %d/%d", reviewed, m.totalCount)
}

func (m ReviewModel) View() string {
	switch m.state {
	case reviewStateLoading:
		return lipgloss.NewStyle().Padding(1).Render(
			fmt.Sprintf("%s Loading flagged matches...", m.spinner.View()),
		)

	case reviewStateActing:
		return lipgloss.NewStyle().Padding(1).Render(
			fmt.Sprintf("%s Saving...", m.spinner.View()),
		)

	case reviewStateConfirming:
		return lipgloss.NewStyle().Padding(1).Render(
			m.viewMatch() + "\n\n" + m.form.View(),
		)

	case reviewStateReviewing:
		return lipgloss.NewStyle().Padding(1).Render(
			m.viewMatch() + "\n\n(a: approve, r: reject, s: skip, Esc: back)",
		)

	case reviewStateDone:
		if m.err != nil {
			return lipgloss.NewStyle().Padding(1).Render(
				lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render(m.status),
			)
		}

		return lipgloss.NewStyle().Padding(1).Render(m.status + "\n\n(Esc to go back)")
	}

	return ""
}

func (m ReviewModel) viewMatch() string {
	if m.current == nil {
		return m.status
	}

	c := m.current.CSVData

	header := lipgloss.NewStyle().Bold(true).Render(m.status)

	details := fmt.Sprintf(
		"Candidate:  %s\n"+
			"  Amount:   %s\n"+
			"  Date:     %s\n"+
			"  Merchant: %s\n\n"+
			"Existing transaction date: %s (%d day(s) apart)\n"+
			"Confidence: %d%%",
		c.Name,
		FormatAmount(m.current.MatchedAmount, c.CurrencyCode),
		FormatDate(m.current.MatchedDate),
		c.Merchant,
		FormatDate(m.current.ExistingDate),
		m.current.DaysDifference,
		m.current.Confidence,
	)

	return header + "\n\n" + details
}

type flaggedLoadedMsg struct {
	matches []*matching.Match
	err     error
}

func (m ReviewModel) loadFlaggedCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		matches, err := m.matchingService.ListFlagged(ctx, m.userID, nil)

		return flaggedLoadedMsg{matches: matches, err: err}
	}
}

type reviewResultMsg struct {
	err error
}

func (m ReviewModel) approveCmd(matchID uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		_, err := m.matchingService.Approve(ctx, m.userID, matchID)

		return reviewResultMsg{err: err}
	}
}

func (m ReviewModel) rejectCmd(matchID uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		err := m.matchingService.Reject(ctx, m.userID, matchID)

		return reviewResultMsg{err: err}
	}
}
