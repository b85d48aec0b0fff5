package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrInteractiveDisabled is returned when prompts are disabled by
// GRAFT_NON_INTERACTIVE or when there is no terminal.
var ErrInteractiveDisabled = fmt.Errorf("interactive prompts are disabled")

// IsTTY reports whether both stdin and stdout are terminals.
func IsTTY() bool {
	return isTerminal(os.Stdin.Fd()) && isTerminal(os.Stdout.Fd())
}

// InteractiveAllowed reports whether prompts may be shown.
func InteractiveAllowed() bool {
	return os.Getenv("GRAFT_NON_INTERACTIVE") == "" && IsTTY()
}

func checkInteractiveAllowed() error {
	if !InteractiveAllowed() {
		return ErrInteractiveDisabled
	}
	return nil
}

var promptStyle = lipgloss.NewStyle().Margin(1, 0)

// textInputModel asks for a single line of text.
type textInputModel struct {
	input  textinput.Model
	prompt string
	done   bool
	err    error
}

func (m textInputModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m textInputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit
		case tea.KeyCtrlC, tea.KeyEsc:
			m.err = fmt.Errorf("canceled")
			m.done = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m textInputModel) View() string {
	if m.done {
		return ""
	}
	return promptStyle.Render(fmt.Sprintf("%s\n%s\n\n(Enter to submit, Ctrl+C to cancel)", m.prompt, m.input.View()))
}

// confirmModel is a yes/no question.
type confirmModel struct {
	prompt string
	choice bool
	done   bool
	err    error
}

func (m confirmModel) Init() tea.Cmd {
	return nil
}

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.Type {
	case tea.KeyEnter:
		m.done = true
		return m, tea.Quit
	case tea.KeyCtrlC, tea.KeyEsc:
		m.err = fmt.Errorf("canceled")
		m.done = true
		return m, tea.Quit
	case tea.KeyRunes:
		switch strings.ToLower(string(key.Runes)) {
		case "y":
			m.choice = true
			m.done = true
			return m, tea.Quit
		case "n":
			m.choice = false
			m.done = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m confirmModel) View() string {
	if m.done {
		return ""
	}
	yesNo := "[y/N]"
	if m.choice {
		yesNo = "[Y/n]"
	}
	return promptStyle.Render(fmt.Sprintf("%s %s", m.prompt, yesNo))
}

// PromptTextInput asks for a line of text, prefilled with defaultValue.
func PromptTextInput(prompt, defaultValue string) (string, error) {
	if err := checkInteractiveAllowed(); err != nil {
		return "", err
	}
	ti := textinput.New()
	ti.SetValue(defaultValue)
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 80

	final, err := tea.NewProgram(textInputModel{input: ti, prompt: prompt}).Run()
	if err != nil {
		return "", err
	}
	m, ok := final.(textInputModel)
	if !ok {
		return "", fmt.Errorf("unexpected model type")
	}
	if m.err != nil {
		return "", m.err
	}
	return m.input.Value(), nil
}

// PromptConfirm asks a yes/no question.
func PromptConfirm(prompt string, defaultValue bool) (bool, error) {
	if err := checkInteractiveAllowed(); err != nil {
		return false, err
	}
	final, err := tea.NewProgram(confirmModel{prompt: prompt, choice: defaultValue}).Run()
	if err != nil {
		return false, err
	}
	m, ok := final.(confirmModel)
	if !ok {
		return false, fmt.Errorf("unexpected model type")
	}
	if m.err != nil {
		return false, m.err
	}
	return m.choice, nil
}

// PromptSelectPaths lets the user pick a subset of paths.
func PromptSelectPaths(message string, paths []string) ([]string, error) {
	if err := checkInteractiveAllowed(); err != nil {
		return nil, err
	}
	var selected []string
	prompt := &survey.MultiSelect{
		Message: message,
		Options: paths,
	}
	if err := survey.AskOne(prompt, &selected); err != nil {
		return nil, err
	}
	return selected, nil
}
