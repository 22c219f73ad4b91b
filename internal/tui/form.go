package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/quantfold/commentary-annotator/internal/model"
	"github.com/quantfold/commentary-annotator/internal/session"
)

// field identifies the focused input of the form.
type field int

const (
	fieldBuy field = iota
	fieldSell
	fieldReason
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7AA2F7"))

	commentaryStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Bold(true)

	focusedLabelStyle = labelStyle.
				Foreground(lipgloss.Color("#7AA2F7"))

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// formModel is the bubbletea model for annotating a single task.
type formModel struct {
	task      session.Task
	byCode    map[string]model.Company
	keymap    KeyMap
	commentry viewport.Model
	buyInput  textinput.Model
	sellInput textinput.Model
	reason    textarea.Model
	focus     field
	errMsg    string
	width     int
	ready     bool

	// Result, read by the prompter after the program exits.
	decision  model.Decision
	submitted bool
	quit      bool
}

func newFormModel(task session.Task, companies []model.Company) formModel {
	byCode := make(map[string]model.Company, len(companies))
	for _, c := range companies {
		byCode[c.Code] = c
	}

	buy := textinput.New()
	buy.Placeholder = "codes to buy, comma separated"
	buy.Prompt = ""
	buy.Focus()

	sell := textinput.New()
	sell.Placeholder = "codes to sell, comma separated"
	sell.Prompt = ""

	reason := textarea.New()
	reason.Placeholder = "why?"
	reason.SetHeight(3)
	reason.ShowLineNumbers = false

	return formModel{
		task:      task,
		byCode:    byCode,
		keymap:    DefaultKeyMap(),
		buyInput:  buy,
		sellInput: sell,
		reason:    reason,
		focus:     fieldBuy,
	}
}

func (m formModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m formModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		height := msg.Height / 2
		if height < 5 {
			height = 5
		}
		if !m.ready {
			m.commentry = viewport.New(msg.Width-4, height)
			m.commentry.SetContent(m.task.Text)
			m.ready = true
		} else {
			m.commentry.Width = msg.Width - 4
			m.commentry.Height = height
		}
		m.buyInput.Width = msg.Width - 14
		m.sellInput.Width = msg.Width - 14
		m.reason.SetWidth(msg.Width - 6)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keymap.Quit):
			m.quit = true
			return m, tea.Quit

		case key.Matches(msg, m.keymap.Submit):
			return m.submit()

		case key.Matches(msg, m.keymap.ScrollUp), key.Matches(msg, m.keymap.ScrollDn):
			// The reason textarea needs arrow keys for editing; otherwise
			// they scroll the commentary.
			if m.focus != fieldReason {
				var cmd tea.Cmd
				m.commentry, cmd = m.commentry.Update(msg)
				return m, cmd
			}

		case key.Matches(msg, m.keymap.NextField):
			// Enter inside the reason field inserts a newline instead.
			if !(m.focus == fieldReason && msg.String() == "enter") {
				return m.cycleFocus(1), nil
			}

		case key.Matches(msg, m.keymap.PrevField):
			return m.cycleFocus(-1), nil
		}
	}

	return m.updateFocused(msg)
}

func (m formModel) View() string {
	if !m.ready {
		return "loading..."
	}

	id := m.task.ID
	header := headerStyle.Render(fmt.Sprintf("Market Commentary  (%d/%d)  %s · %s · %s · %s",
		m.task.Seq, m.task.Total, id.ISODate(), id.Source, id.Scenario, id.Method))

	var b strings.Builder
	b.WriteString(header + "\n")
	b.WriteString(commentaryStyle.Width(m.commentry.Width).Render(m.commentry.View()) + "\n\n")

	b.WriteString(m.fieldLabel(fieldBuy, "📈 Buy ") + m.buyInput.View() + "\n")
	b.WriteString(m.fieldLabel(fieldSell, "📉 Sell") + m.sellInput.View() + "\n")
	b.WriteString(m.fieldLabel(fieldReason, "Reason") + "\n" + m.reason.View() + "\n")

	if m.errMsg != "" {
		b.WriteString(errStyle.Render(m.errMsg) + "\n")
	}

	b.WriteString(helpStyle.Render("tab: next field · ctrl+s: submit · esc: quit"))
	return b.String()
}

func (m formModel) fieldLabel(f field, label string) string {
	if m.focus == f {
		return focusedLabelStyle.Render("▸ "+label) + " "
	}
	return labelStyle.Render("  "+label) + " "
}

func (m formModel) cycleFocus(dir int) formModel {
	m.errMsg = ""
	m.focus = field((int(m.focus) + dir + 3) % 3)

	m.buyInput.Blur()
	m.sellInput.Blur()
	m.reason.Blur()

	switch m.focus {
	case fieldBuy:
		m.buyInput.Focus()
	case fieldSell:
		m.sellInput.Focus()
	case fieldReason:
		m.reason.Focus()
	}
	return m
}

func (m formModel) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case fieldBuy:
		m.buyInput, cmd = m.buyInput.Update(msg)
	case fieldSell:
		m.sellInput, cmd = m.sellInput.Update(msg)
	case fieldReason:
		m.reason, cmd = m.reason.Update(msg)
	}
	return m, cmd
}

func (m formModel) submit() (tea.Model, tea.Cmd) {
	buy := parseCodes(m.buyInput.Value())
	sell := parseCodes(m.sellInput.Value())

	decision := model.Decision{
		Buy:    buy,
		Sell:   sell,
		Reason: strings.TrimSpace(m.reason.Value()),
	}

	if err := decision.Validate(); err != nil {
		m.errMsg = err.Error()
		return m, nil
	}
	if unknown := m.unknownCodes(append(append([]string{}, buy...), sell...)); len(unknown) > 0 {
		m.errMsg = "unknown company codes: " + strings.Join(unknown, ", ")
		return m, nil
	}

	m.decision = decision
	m.submitted = true
	return m, tea.Quit
}

func (m formModel) unknownCodes(codes []string) []string {
	if len(m.byCode) == 0 {
		return nil
	}

	var unknown []string
	for _, code := range codes {
		if _, ok := m.byCode[code]; !ok {
			unknown = append(unknown, code)
		}
	}
	return unknown
}

func parseCodes(input string) []string {
	seen := make(map[string]struct{})
	codes := []string{}
	for _, part := range strings.Split(input, ",") {
		code := strings.TrimSpace(part)
		if code == "" {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes
}
