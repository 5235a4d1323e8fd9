package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jwebster45206/constraint/internal/handlers"
	"github.com/jwebster45206/constraint/pkg/render"
	"github.com/muesli/reflow/wordwrap"
)

// AllScenarios is the selection entry that draws from every scenario file.
const AllScenarios = "All scenarios"

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config       *ConsoleConfig
	client       *http.Client
	run          *handlers.GenerateResponse
	scenarioFile string
	runViewport  viewport.Model
	metaViewport viewport.Model
	ready        bool
	width        int
	height       int
	err          error
	status       string
	loading      bool

	// Scenario selection state
	showScenarioModal bool
	scenarios         []string
	selectedScenario  int
	loadingScenarios  bool

	// Quit confirmation state
	showQuitModal bool

	// Progress bar state
	progressTick int
}

type scenariosLoadedMsg struct {
	files []string
	err   error
}

type runGeneratedMsg struct {
	run *handlers.GenerateResponse
	err error
}

type copiedMsg struct {
	err error
}

type progressTickMsg struct{}

var (
	runPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	instructionStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("86")) // green

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(cfg *ConsoleConfig, client *http.Client) ConsoleUI {
	runVp := viewport.New(50, 20)
	runVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		config:            cfg,
		client:            client,
		runViewport:       runVp,
		metaViewport:      metaVp,
		showScenarioModal: true,
		loadingScenarios:  true,
	}
}

// writeRunContent renders the run's events at the viewport width.
func writeRunContent(run *handlers.GenerateResponse, width int) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("INSTRUCTIONS") + "\n\n")
	if run == nil {
		return content.String()
	}
	if width > render.MaxWidth {
		width = render.MaxWidth
	}
	content.WriteString(instructionStyle.Render(render.Text(run.Events, width)))
	return content.String()
}

func writeMetadata(run *handlers.GenerateResponse, desired []string, width int) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("RUN") + "\n\n")

	content.WriteString("Run ID:\n")
	content.WriteString(run.RunID.String()[:8] + "...\n\n")

	content.WriteString("Seed:\n")
	content.WriteString(wordwrap.String(run.Seed, max(width, 8)) + "\n\n")

	content.WriteString("Scenario:\n")
	content.WriteString(wordwrap.String(run.Scenario, max(width, 8)) + "\n")
	content.WriteString(promptStyle.Render(run.File) + "\n\n")

	content.WriteString("Desired items:\n")
	if len(desired) == 0 {
		content.WriteString("None\n\n")
	} else {
		for _, d := range desired {
			content.WriteString(fmt.Sprintf("• %s\n", d))
		}
		content.WriteString("\n")
	}

	content.WriteString(promptStyle.Render("r  re-roll\nc  copy\ns  scenarios\nq  quit"))
	return content.String()
}

func (m *ConsoleUI) layout() {
	runWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - runWidth - 6

	m.runViewport.Width = runWidth - 2
	m.runViewport.Height = m.height - 6
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
}

func (m *ConsoleUI) writeContent() {
	m.runViewport.SetContent(writeRunContent(m.run, m.runViewport.Width-6))
	if m.run != nil {
		m.metaViewport.SetContent(writeMetadata(m.run, m.config.DesiredItems, m.metaViewport.Width))
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return m.loadScenarios()
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showScenarioModal {
		return m.updateScenarioModal(msg)
	}

	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.writeContent()
		m.ready = true

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		}
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "r":
			if m.loading {
				return m, nil
			}
			m.loading = true
			m.status = ""
			m.progressTick = 0
			return m, tea.Batch(m.generateRun(), progressTick())
		case "c":
			if m.run != nil {
				return m, copyText(m.run.Text)
			}
		case "s":
			m.showScenarioModal = true
			return m, nil
		}

	case runGeneratedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			m.status = errorStyle.Render("Error: " + msg.err.Error())
			return m, nil
		}
		m.err = nil
		m.run = msg.run
		m.writeContent()
		m.runViewport.GotoTop()
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.status = errorStyle.Render("Copy failed: " + msg.err.Error())
		} else {
			m.status = promptStyle.Render("Copied to clipboard")
		}
		return m, nil

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			return m, progressTick()
		}
		return m, nil
	}

	m.runViewport, vpCmd = m.runViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(vpCmd, mvCmd)
}

func (m ConsoleUI) loadScenarios() tea.Cmd {
	return func() tea.Msg {
		files, err := listScenarioFiles(m.client, m.config.APIBaseURL)
		return scenariosLoadedMsg{files, err}
	}
}

// generateRun requests a run with a fresh seed from the selected scenario.
func (m ConsoleUI) generateRun() tea.Cmd {
	return func() tea.Msg {
		run, err := generate(m.client, m.config.APIBaseURL, m.scenarioFile, "", m.config.DesiredItems)
		return runGeneratedMsg{run, err}
	}
}

func copyText(text string) tea.Cmd {
	return func() tea.Msg {
		return copiedMsg{clipboard.WriteAll(text)}
	}
}

func (m ConsoleUI) updateScenarioModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case scenariosLoadedMsg:
		m.loadingScenarios = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.scenarios = append([]string{AllScenarios}, msg.files...)
		}

	case runGeneratedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.run = msg.run
		m.showScenarioModal = false
		if m.width > 0 && m.height > 0 {
			m.layout()
			m.ready = true
		}
		m.writeContent()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.loadingScenarios || m.loading {
			return m, nil
		}

		switch msg.Type {
		case tea.KeyEsc:
			m.showQuitModal = true
			m.showScenarioModal = false
			return m, nil
		case tea.KeyUp:
			if m.selectedScenario > 0 {
				m.selectedScenario--
			}
		case tea.KeyDown:
			if m.selectedScenario < len(m.scenarios)-1 {
				m.selectedScenario++
			}
		case tea.KeyEnter:
			if len(m.scenarios) > 0 {
				m.scenarioFile = m.scenarios[m.selectedScenario]
				if m.scenarioFile == AllScenarios {
					m.scenarioFile = ""
				}
				m.err = nil
				m.loading = true
				return m, m.generateRun()
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		}
		switch msg.String() {
		case "y", "Y", "q":
			return m, tea.Quit
		case "n", "N":
			m.showQuitModal = false
			if m.run == nil {
				m.showScenarioModal = true
			}
			return m, nil
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit?"))
	content.WriteString("\n\n")
	content.WriteString("Are you sure you want to quit?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderScenarioModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder

	switch {
	case m.loadingScenarios:
		content.WriteString(modalTitleStyle.Render("Loading Scenarios..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Please wait while we fetch available scenarios..."))
	case m.err != nil:
		content.WriteString(modalTitleStyle.Render("Error"))
		content.WriteString("\n\n")
		content.WriteString(errorStyle.Render(wordwrap.String(m.err.Error(), 50)))
		content.WriteString("\n\n")
		content.WriteString("Press Enter to pick again or Ctrl+C to exit")
	case m.loading:
		content.WriteString(modalTitleStyle.Render("Generating..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Rolling the dice..."))
	default:
		content.WriteString(modalTitleStyle.Render("Select a Scenario"))
		content.WriteString("\n\n")

		for i, scenario := range m.scenarios {
			if i == m.selectedScenario {
				content.WriteString(modalSelectedItemStyle.Render(fmt.Sprintf("▶ %s", scenario)))
			} else {
				content.WriteString(modalItemStyle.Render(fmt.Sprintf("  %s", scenario)))
			}
			content.WriteString("\n")
		}

		content.WriteString("\n")
		content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to select, Ctrl+C to exit"))
	}

	modal := modalStyle.Width(60).Render(content.String())

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showScenarioModal {
		return m.renderScenarioModal()
	}

	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	runWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - runWidth - 6

	footer := m.status
	if m.loading {
		footer = m.renderProgressBar()
	}

	runPanel := runPanelStyle.Width(runWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.runViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", max(runWidth-4, 1))),
			footer,
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, runPanel, metaPanel)
}

// renderProgressBar creates an animated progress bar for loading states
func (m ConsoleUI) renderProgressBar() string {
	usable := m.runViewport.Width - 6
	if usable <= 0 {
		usable = 30 // fallback before sizing
	}

	if usable > 80 {
		usable = 80
	} else if usable < 10 {
		usable = 10
	}

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else if i == filled && frame%4 < 2 {
			bar.WriteString("▓") // Blinking effect at the progress point
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

// progressTick creates a command that sends a progress tick message
func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
