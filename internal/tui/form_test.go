package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/commentary-annotator/internal/model"
	"github.com/quantfold/commentary-annotator/internal/session"
)

func newTestForm(t *testing.T) formModel {
	t.Helper()
	id, err := model.ParseTaskID("chatgpt_20200915_morning_naive")
	require.NoError(t, err)

	task := session.Task{ID: id, Text: "Semis lead the rally.", Seq: 1, Total: 2}
	companies := []model.Company{
		{Code: "2330", Name: "TSMC"},
		{Code: "2454", Name: "MediaTek"},
	}
	return newFormModel(task, companies)
}

func TestParseCodes(t *testing.T) {
	assert.Equal(t, []string{}, parseCodes(""))
	assert.Equal(t, []string{"2330"}, parseCodes(" 2330 "))
	assert.Equal(t, []string{"2330", "2454"}, parseCodes("2330,2454,2330,"))
}

func TestSubmitValidDecision(t *testing.T) {
	m := newTestForm(t)
	m.buyInput.SetValue("2330")
	m.sellInput.SetValue("2454")
	m.reason.SetValue("rotation")

	next, cmd := m.submit()
	got := next.(formModel)

	assert.True(t, got.submitted)
	assert.NotNil(t, cmd, "submit must quit the program")
	assert.Equal(t, []string{"2330"}, got.decision.Buy)
	assert.Equal(t, []string{"2454"}, got.decision.Sell)
	assert.Equal(t, "rotation", got.decision.Reason)
}

func TestSubmitRejectsOverlap(t *testing.T) {
	m := newTestForm(t)
	m.buyInput.SetValue("2330")
	m.sellInput.SetValue("2330")

	next, _ := m.submit()
	got := next.(formModel)

	assert.False(t, got.submitted)
	assert.Contains(t, got.errMsg, "both buy and sell")
}

func TestSubmitRejectsUnknownCodes(t *testing.T) {
	m := newTestForm(t)
	m.buyInput.SetValue("9999")

	next, _ := m.submit()
	got := next.(formModel)

	assert.False(t, got.submitted)
	assert.Contains(t, got.errMsg, "unknown company codes: 9999")
}

func TestQuitKey(t *testing.T) {
	m := newTestForm(t)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	got := next.(formModel)

	assert.True(t, got.quit)
	assert.NotNil(t, cmd)
}

func TestFocusCycle(t *testing.T) {
	m := newTestForm(t)
	require.Equal(t, fieldBuy, m.focus)

	m = m.cycleFocus(1)
	assert.Equal(t, fieldSell, m.focus)
	m = m.cycleFocus(1)
	assert.Equal(t, fieldReason, m.focus)
	m = m.cycleFocus(1)
	assert.Equal(t, fieldBuy, m.focus)

	m = m.cycleFocus(-1)
	assert.Equal(t, fieldReason, m.focus)
}
