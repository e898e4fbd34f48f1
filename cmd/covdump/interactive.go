package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	covruntime "github.com/wippyai/coverage-runtime"
	"github.com/wippyai/coverage-runtime/engine"
	"github.com/wippyai/coverage-runtime/profile"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateSelectFunc modelState = iota
	stateSavePath
	stateShowResult
)

type interactiveModel struct {
	err      error
	eng      *engine.Engine
	instance *engine.Instance
	cfg      engine.Config
	filename string
	outFile  string
	result   string
	exports  []string
	pathIn   textinput.Model
	selected int
	state    modelState
}

type loadedMsg struct {
	err     error
	eng     *engine.Engine
	inst    *engine.Instance
	exports []string
}

type actionMsg struct {
	err    error
	result string
}

func runInteractive(filename string, cfg engine.Config, outFile string) error {
	m := &interactiveModel{
		filename: filename,
		cfg:      cfg,
		outFile:  outFile,
		state:    stateSelectFunc,
	}
	_, err := tea.NewProgram(m).Run()
	return err
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadGuest
}

func (m *interactiveModel) loadGuest() tea.Msg {
	ctx := context.Background()

	data, err := os.ReadFile(m.filename)
	if err != nil {
		return loadedMsg{err: err}
	}

	eng, err := engine.NewWithConfig(ctx, m.cfg)
	if err != nil {
		return loadedMsg{err: err}
	}

	inst, err := eng.Load(ctx, data)
	if err != nil {
		eng.Close(ctx)
		return loadedMsg{err: err}
	}

	exports := inst.ExportNames()
	sort.Strings(exports)

	return loadedMsg{eng: eng, inst: inst, exports: exports}
}

func (m *interactiveModel) runSelected() tea.Msg {
	name := m.exports[m.selected]
	if _, err := m.instance.Run(context.Background(), name); err != nil {
		return actionMsg{err: err}
	}
	return actionMsg{result: fmt.Sprintf("%s() returned", name)}
}

func (m *interactiveModel) capture() tea.Msg {
	var buf covruntime.Buffer
	if err := profile.Capture(m.instance, &buf); err != nil {
		return actionMsg{err: err}
	}
	if err := os.WriteFile(m.outFile, buf.Bytes(), 0o644); err != nil {
		return actionMsg{err: err}
	}
	return actionMsg{result: fmt.Sprintf("wrote %d bytes to %s", buf.Len(), m.outFile)}
}

func (m *interactiveModel) reset() tea.Msg {
	profile.Reset(m.instance)
	return actionMsg{result: "counters reset"}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state == stateSavePath && msg.String() == "q" {
				break
			}
			ctx := context.Background()
			if m.instance != nil {
				m.instance.Close(ctx)
			}
			if m.eng != nil {
				m.eng.Close(ctx)
			}
			return m, tea.Quit

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(m.exports)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				if m.instance != nil && len(m.exports) > 0 {
					return m, m.runSelected
				}
			case stateSavePath:
				m.outFile = m.pathIn.Value()
				m.state = stateSelectFunc
				return m, m.capture
			case stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.err = nil
			}

		case "c":
			if m.state == stateSelectFunc && m.instance != nil {
				in := textinput.New()
				in.SetValue(m.outFile)
				in.Focus()
				m.pathIn = in
				m.state = stateSavePath
				return m, nil
			}

		case "r":
			if m.state == stateSelectFunc && m.instance != nil {
				return m, m.reset
			}

		case "esc":
			switch m.state {
			case stateSavePath:
				m.state = stateSelectFunc
			case stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.err = nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.eng = msg.eng
		m.instance = msg.inst
		m.exports = msg.exports

	case actionMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateSavePath {
		var cmd tea.Cmd
		m.pathIn, cmd = m.pathIn.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *interactiveModel) View() string {
	s := titleStyle.Render("covdump: "+m.filename) + "\n\n"

	if m.instance == nil && m.err == nil {
		return s + "loading guest...\n"
	}

	switch m.state {
	case stateSavePath:
		s += "Save capture to:\n"
		s += m.pathIn.View() + "\n\n"
		s += helpStyle.Render("enter: save  esc: cancel")
		return s + "\n"

	case stateShowResult:
		if m.err != nil {
			s += errorStyle.Render("error: "+m.err.Error()) + "\n\n"
		} else {
			s += resultStyle.Render(m.result) + "\n\n"
		}
		s += helpStyle.Render("enter/esc: back  q: quit")
		return s + "\n"
	}

	if m.err != nil {
		s += errorStyle.Render("error: "+m.err.Error()) + "\n\n"
		s += helpStyle.Render("q: quit")
		return s + "\n"
	}

	s += fmt.Sprintf("Format version: %d\n\n", profile.MaskedVersion(m.instance.Version()))
	s += "Exported functions:\n"
	for i, name := range m.exports {
		line := "  " + funcStyle.Render(name)
		if i == m.selected {
			line = selectedStyle.Render("> " + name)
		}
		s += line + "\n"
	}
	s += "\n" + helpStyle.Render("↑/↓: select  enter: run  c: capture  r: reset  q: quit")
	return s + "\n"
}
