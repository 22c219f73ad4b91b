package tui

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/quantfold/commentary-annotator/internal/model"
	"github.com/quantfold/commentary-annotator/internal/session"
)

// Prompter implements session.Prompter with a full-screen bubbletea form.
// Each task runs its own program; the session driver stays in control of
// ordering and persistence between tasks.
type Prompter struct {
	companies []model.Company
}

// NewPrompter creates a TUI prompter with the given company reference list.
func NewPrompter(companies []model.Company) *Prompter {
	return &Prompter{companies: companies}
}

// Annotate presents the annotation form for one task and blocks until the
// annotator submits or quits.
func (p *Prompter) Annotate(ctx context.Context, task session.Task) (model.Decision, error) {
	program := tea.NewProgram(
		newFormModel(task, p.companies),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	final, err := program.Run()
	if err != nil {
		return model.Decision{}, fmt.Errorf("annotation form failed: %w", err)
	}

	m, ok := final.(formModel)
	if !ok {
		return model.Decision{}, fmt.Errorf("unexpected final model %T", final)
	}
	if m.quit || !m.submitted {
		return model.Decision{}, session.ErrQuit
	}
	return m.decision, nil
}

// ShowError displays a blocking error message between forms.
func (p *Prompter) ShowError(msg string) {
	fmt.Fprintln(os.Stderr, errStyle.Render("✗ "+msg))
}

// ShowCompletion displays the all-done state.
func (p *Prompter) ShowCompletion(completed, total int) {
	fmt.Printf("%s\n", headerStyle.Render(
		fmt.Sprintf("All commentaries evaluated — %d of %d decisions recorded.", completed, total)))
}

// Ensure Prompter implements the session.Prompter interface.
var _ session.Prompter = (*Prompter)(nil)
