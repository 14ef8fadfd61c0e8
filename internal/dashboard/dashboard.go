// Terminal dashboard showing live twin risk across the fleet
package dashboard

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"bioprintctl/internal/twin"
)

const pollInterval = 2 * time.Second

var (
	baseStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240"))
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	footStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

type twinsMsg []twin.State

type errMsg struct{ err error }

type tickMsg time.Time

// Model is the bubbletea model polling the admin API for twin states.
type Model struct {
	endpoint string
	client   *http.Client
	table    table.Model
	err      error
	updated  time.Time
}

// New builds a dashboard model polling the given admin endpoint.
func New(endpoint string) Model {
	columns := []table.Column{
		{Title: "Printer", Width: 20},
		{Title: "Viability", Width: 10},
		{Title: "Predicted 5m", Width: 13},
		{Title: "Collapse Risk", Width: 14},
		{Title: "Confidence", Width: 11},
		{Title: "Action", Width: 15},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true)
	t.SetStyles(styles)

	return Model{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 5 * time.Second},
		table:    t,
	}
}

// Init starts the first poll.
func (m Model) Init() tea.Cmd {
	return m.fetch
}

// Update handles poll results, resize, and key input.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case twinsMsg:
		m.err = nil
		m.updated = time.Now()
		m.table.SetRows(rowsFromStates(msg))
		return m, tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
	case errMsg:
		m.err = msg.err
		return m, tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
	case tickMsg:
		return m, m.fetch
	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 6)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the fleet table.
func (m Model) View() string {
	out := titleStyle.Render("bioprintctl fleet risk") + "\n"
	out += baseStyle.Render(m.table.View()) + "\n"
	if m.err != nil {
		out += errStyle.Render("poll failed: "+m.err.Error()) + "\n"
	} else if !m.updated.IsZero() {
		out += footStyle.Render("updated "+m.updated.Format("15:04:05")) + "\n"
	}
	out += footStyle.Render("q to quit")
	return out
}

func (m Model) fetch() tea.Msg {
	resp, err := m.client.Get(m.endpoint + "/twins")
	if err != nil {
		return errMsg{err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errMsg{fmt.Errorf("admin API returned %s", resp.Status)}
	}
	var states []twin.State
	if err := json.NewDecoder(resp.Body).Decode(&states); err != nil {
		return errMsg{err}
	}
	return twinsMsg(states)
}

func rowsFromStates(states []twin.State) []table.Row {
	rows := make([]table.Row, 0, len(states))
	for _, s := range states {
		rows = append(rows, table.Row{
			s.PrinterID,
			fmt.Sprintf("%.3f", s.CurrentViability),
			fmt.Sprintf("%.3f", s.PredictedViability5m),
			fmt.Sprintf("%.3f", s.CollapseRisk),
			fmt.Sprintf("%.2f", s.Confidence),
			string(s.RecommendedAction),
		})
	}
	return rows
}
