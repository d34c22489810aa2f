package main

import (
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/ledgermatch/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/ledgermatch/internal/audit"
	"github.com/MrJamesThe3rd/ledgermatch/internal/category"
	categoryStore "github.com/MrJamesThe3rd/ledgermatch/internal/category/store"
	"github.com/MrJamesThe3rd/ledgermatch/internal/config"
	"github.com/MrJamesThe3rd/ledgermatch/internal/database"
	"github.com/MrJamesThe3rd/ledgermatch/internal/importbatch"
	batchStore "github.com/MrJamesThe3rd/ledgermatch/internal/importbatch/store"
	"github.com/MrJamesThe3rd/ledgermatch/internal/importer"
	"github.com/MrJamesThe3rd/ledgermatch/internal/matching"
	matchingStore "github.com/MrJamesThe3rd/ledgermatch/internal/matching/store"
	"github.com/MrJamesThe3rd/ledgermatch/internal/progress"
	"github.com/MrJamesThe3rd/ledgermatch/internal/transaction"
	txStore "github.com/MrJamesThe3rd/ledgermatch/internal/transaction/store"
)

type model struct {
	parserService   *importer.Service
	batchService    *importbatch.Service
	matchingService *matching.Service
	userID          uuid.UUID
	batchDefaults   importbatch.Options

	currentView View

	importView view.ImportModel
	reviewView view.ReviewModel
}

type View int

const (
	ViewMenu   View = 0
	ViewImport View = 1
	ViewReview View = 2
)

func initialModel() model {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	userID, err := uuid.Parse(cfg.TUI.UserID)
	if err != nil {
		slog.Error("TUI_USER_ID must be a valid uuid", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	auditor := audit.NewSlogEmitter()

	txSvc := transaction.NewService(txStore.New(db))
	categorySvc := category.NewService(categoryStore.New(db))
	matchSvc := matching.NewService(matchingStore.New(db), txSvc, auditor)
	parserSvc := importer.NewService()
	batchSvc := importbatch.NewService(
		batchStore.New(db), txSvc, matchSvc, categorySvc, auditor, progress.NewSlogSink(),
	)

	batchDefaults := importbatch.DefaultOptions()
	batchDefaults.MatchingEnabled = cfg.Import.MatchingEnabled
	batchDefaults.AutoMergeThreshold = cfg.Import.AutoMergeThreshold
	batchDefaults.ChunkSize = cfg.Import.ChunkSize

	return model{
		parserService:   parserSvc,
		batchService:    batchSvc,
		matchingService: matchSvc,
		userID:          userID,
		batchDefaults:   batchDefaults,
		currentView:     ViewMenu,
		importView:      view.NewImportModel(parserSvc, batchSvc, userID, batchDefaults),
		reviewView:      view.NewReviewModel(matchSvc, userID),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.currentView == ViewMenu {
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewImport
				m.importView = view.NewImportModel(m.parserService, m.batchService, m.userID, m.batchDefaults)

				return m, m.importView.Init()
			case "2":
				m.currentView = ViewReview
				m.reviewView = view.NewReviewModel(m.matchingService, m.userID)

				return m, m.reviewView.Init()
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewImport:
		var newModel tea.Model
		newModel, cmd = m.importView.Update(msg)
		m.importView = newModel.(view.ImportModel)
	case ViewReview:
		var newModel tea.Model
		newModel, cmd = m.reviewView.Update(msg)
		m.reviewView = newModel.(view.ReviewModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			"Ledgermatch TUI\n\n" +
				"1. Import Statement\n" +
				"2. Review Flagged Matches\n\n" +
				"q. Quit",
		)
	case ViewImport:
		return m.importView.View()
	case ViewReview:
		return m.reviewView.View()
	}

	return "Unknown View"
}

func main() {
	p := tea.NewProgram(initialModel())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
