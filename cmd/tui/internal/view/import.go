package view

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledgermatch/internal/encoding"
	"github.com/MrJamesThe3rd/ledgermatch/internal/importbatch"
	"github.com/MrJamesThe3rd/ledgermatch/internal/importer"
)

const importTimeout = 2 * time.Minute

type importState int

const (
	importStateFilePick importState = iota
	importStateImporting
	importStateResult
)

// ImportModel runs a statement file through the full pipeline: encoding
// normalization, format detection, dialect parsing and the batch run.
type ImportModel struct {
	CommonModel
	parser  *importer.Service
	batches *importbatch.Service
	userID  uuid.UUID
	opts    importbatch.Options

	state      importState
	filePicker filepicker.Model
	spinner    spinner.Model

	batch  *importbatch.Batch
	status string
	err    error
}

func NewImportModel(parser *importer.Service, batches *importbatch.Service, userID uuid.UUID, opts importbatch.Options) ImportModel {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()
	fp.ShowHidden = false
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.AllowedTypes = []string{".csv"}
	fp.SetHeight(15)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return ImportModel{
		parser:     parser,
		batches:    batches,
		userID:     userID,
		opts:       opts,
		filePicker: fp,
		spinner:    s,
	}
}

func (m ImportModel) Title() string { return "Import Statement" }

func (m ImportModel) ShortHelp() string {
	if m.state == importStateResult {
		return "Esc: back to menu"
	}

	return "Esc: back | Enter: select"
}

func (m ImportModel) Init() tea.Cmd {
	return m.filePicker.Init()
}

func (m ImportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			if m.state == importStateResult {
				m.state = importStateFilePick
				m.err = nil
				m.status = ""
				m.batch = nil

				return m, m.filePicker.Init()
			}

			return m, Back
		}

	case importDoneMsg:
		m.state = importStateResult
		m.batch = msg.batch
		m.err = msg.err

		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
		}

		return m, nil
	}

	if m.state == importStateImporting {
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd
	}

	if m.state != importStateFilePick {
		return m, nil
	}

	var cmd tea.Cmd
	m.filePicker, cmd = m.filePicker.Update(msg)

	if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
		m.state = importStateImporting
		m.status = fmt.Sprintf("Importing %s...", path)

		return m, tea.Batch(m.spinner.Tick, m.importCmd(path))
	}

	return m, cmd
}

func (m ImportModel) View() string {
	switch m.state {
	case importStateFilePick:
		return lipgloss.NewStyle().Padding(1).Render(
			"Select a statement file to import:\n\n" + m.filePicker.View(),
		)

	case importStateImporting:
		return lipgloss.NewStyle().Padding(1).Render(
			fmt.Sprintf("%s %s", m.spinner.View(), m.status),
		)

	case importStateResult:
		return m.viewResult()
	}

	return ""
}

func (m ImportModel) viewResult() string {
	style := lipgloss.NewStyle().Padding(1)

	if m.err != nil {
		return style.Render(
			lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render(m.status) +
				"\n\n(Esc to go back)",
		)
	}

	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("46")).
		Render("Import Complete")

	summary := fmt.Sprintf(
		"Batch:   %s\n"+
			"Format:  %s\n"+
			"Rows:    %d\n"+
			"Matched: %d\n"+
			"Created: %d\n"+
			"Skipped: %d\n"+
			"Errors:  %d",
		m.batch.ID,
		m.batch.Metadata["format"],
		m.batch.TotalRows,
		m.batch.MatchedCount,
		m.batch.CreatedCount,
		m.batch.SkippedCount,
		m.batch.ErrorCount,
	)

	return style.Render(lipgloss.JoinVertical(lipgloss.Left, header, "", summary, "", "(Esc to go back)"))
}

type importDoneMsg struct {
	batch *importbatch.Batch
	err   error
}

func (m ImportModel) importCmd(path string) tea.Cmd {
	return func() tea.Msg {
		content, err := os.ReadFile(path)
		if err != nil {
			return importDoneMsg{err: err}
		}

		utf8Reader, err := encoding.NewUTF8Reader(bytes.NewReader(content))
		if err != nil {
			return importDoneMsg{err: err}
		}

		reader := csv.NewReader(utf8Reader)
		reader.FieldsPerRecord = -1
		reader.LazyQuotes = true

		records, err := reader.ReadAll()
		if err != nil {
			return importDoneMsg{err: err}
		}

		if len(records) == 0 {
			return importDoneMsg{err: importer.ErrEmptyFile}
		}

		header, rows := records[0], records[1:]
		format := importer.Detect(header)

		parsed, err := m.parser.Parse(format, header, rows, importer.ParseOptions{})
		if err != nil {
			return importDoneMsg{err: err}
		}

		opts := m.opts
		opts.Filename = path
		opts.Format = format
		opts.FileContent = content

		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		batch, err := m.batches.Run(ctx, m.userID, parsed, opts)
		if err != nil {
			return importDoneMsg{err: err}
		}

		return importDoneMsg{batch: batch}
	}
}
