package ui

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/vmprov/internal/errors"
	"golang.org/x/term"
)

// Host sources shown in the picker.
const (
	SourceConfig = "vmprov.yaml"
	SourceSSH    = "ssh config"
)

// HostInfo describes one pickable host.
type HostInfo struct {
	Name    string // Config name or ssh alias; what gets passed on
	Address string // Where it points, if different from Name
	User    string
	Source  string // SourceConfig or SourceSSH
}

// hostItem implements list.Item for the Bubbles list component.
type hostItem struct {
	host HostInfo
}

func (i hostItem) Title() string {
	return i.host.Name
}

func (i hostItem) Description() string {
	var parts []string

	target := i.host.Address
	if i.host.User != "" && target != "" {
		target = i.host.User + "@" + target
	}
	if target != "" && target != i.host.Name {
		parts = append(parts, target)
	}
	if i.host.Source != "" {
		parts = append(parts, "["+i.host.Source+"]")
	}

	return strings.Join(parts, " | ")
}

func (i hostItem) FilterValue() string {
	// Allow searching by name, address, and user
	values := []string{i.host.Name}
	if i.host.Address != "" {
		values = append(values, i.host.Address)
	}
	if i.host.User != "" {
		values = append(values, i.host.User)
	}
	return strings.Join(values, " ")
}

// HostPickerModel is a Bubble Tea model for selecting a host.
type HostPickerModel struct {
	list     list.Model
	hosts    []HostInfo
	selected *HostInfo
	quitting bool
	width    int
	height   int
}

// hostPickerKeyMap defines key bindings for the host picker.
type hostPickerKeyMap struct {
	Enter key.Binding
	Quit  key.Binding
}

var hostPickerKeys = hostPickerKeyMap{
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "select"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q/esc", "cancel"),
	),
}

// NewHostPickerModel creates a new host picker model.
func NewHostPickerModel(hosts []HostInfo) HostPickerModel {
	items := make([]list.Item, len(hosts))
	for i, h := range hosts {
		items[i] = hostItem{host: h}
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(ColorPrimary).
		BorderForeground(ColorSecondary)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(ColorMuted)

	l := list.New(items, delegate, 0, 0)
	l.Title = "Select a VM"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true).
		Padding(0, 0, 1, 0)
	l.Styles.HelpStyle = lipgloss.NewStyle().Foreground(ColorMuted)
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{hostPickerKeys.Enter}
	}

	return HostPickerModel{
		list:   l,
		hosts:  hosts,
		width:  80,
		height: 15,
	}
}

// Init implements tea.Model.
func (m HostPickerModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m HostPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// While typing a filter, keys belong to the filter input.
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, hostPickerKeys.Enter):
			if item, ok := m.list.SelectedItem().(hostItem); ok {
				m.selected = &item.host
			}
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, hostPickerKeys.Quit):
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height-2)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m HostPickerModel) View() string {
	if m.quitting {
		return ""
	}
	return m.list.View()
}

// Selected returns the selected host, or nil if cancelled.
func (m HostPickerModel) Selected() *HostInfo {
	return m.selected
}

// PickHost displays an interactive host picker and returns the selected host.
// Returns nil if the user cancels (ESC/q/Ctrl+C).
func PickHost(hosts []HostInfo) (*HostInfo, error) {
	return PickHostWithOutput(hosts, os.Stdout, os.Stdin)
}

// PickHostWithOutput displays the host picker using custom I/O.
func PickHostWithOutput(hosts []HostInfo, output io.Writer, input io.Reader) (*HostInfo, error) {
	if len(hosts) == 0 {
		return nil, errors.New(errors.ErrConfig,
			"No hosts to pick from",
			"Pass a host on the command line, or add one with 'vmprov host add'.")
	}

	if len(hosts) == 1 {
		// Only one host, no need to pick
		return &hosts[0], nil
	}

	model := NewHostPickerModel(hosts)

	p := tea.NewProgram(
		model,
		tea.WithOutput(output),
		tea.WithInput(input),
	)

	finalModel, err := p.Run()
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Host picker failed",
			"Pass the host on the command line instead.")
	}

	if m, ok := finalModel.(HostPickerModel); ok {
		return m.Selected(), nil
	}

	return nil, nil
}

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
