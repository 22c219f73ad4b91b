package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/commentary-annotator/internal/model"
	"github.com/quantfold/commentary-annotator/internal/session"
)

var testCompanies = []model.Company{
	{Code: "2330", Name: "TSMC"},
	{Code: "2317", Name: "Hon Hai"},
	{Code: "2454", Name: "MediaTek"},
}

func testTask(t *testing.T) session.Task {
	t.Helper()
	id, err := model.ParseTaskID("chatgpt_20200915_morning_naive")
	require.NoError(t, err)
	return session.Task{ID: id, Text: "Semis lead the rally.", Seq: 1, Total: 3}
}

// scripted builds a prompter fed by pre-typed lines.
func scripted(companies []model.Company, lines ...string) (*Prompter, *bytes.Buffer) {
	var out bytes.Buffer
	input := strings.Join(lines, "\n") + "\n"
	return NewPrompter(strings.NewReader(input), &out, companies), &out
}

func TestAnnotate(t *testing.T) {
	p, out := scripted(testCompanies,
		"2330, 2317", // buy
		"2454",       // sell
		"rotation into semis",
		"y",
	)

	decision, err := p.Annotate(context.Background(), testTask(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"2330", "2317"}, decision.Buy)
	assert.Equal(t, []string{"2454"}, decision.Sell)
	assert.Equal(t, "rotation into semis", decision.Reason)
	assert.Contains(t, out.String(), "Market Commentary")
	assert.Contains(t, out.String(), "2020-09-15")
}

func TestAnnotateBlankDecision(t *testing.T) {
	p, _ := scripted(testCompanies, "", "", "", "y")

	decision, err := p.Annotate(context.Background(), testTask(t))
	require.NoError(t, err)

	assert.Empty(t, decision.Buy)
	assert.Empty(t, decision.Sell)
	assert.Empty(t, decision.Reason)
}

func TestAnnotateOverlapReprompts(t *testing.T) {
	p, out := scripted(testCompanies,
		"2330", "2330", // overlapping, rejected
		"2330", "2454", // second attempt
		"fixed",
		"y",
	)

	decision, err := p.Annotate(context.Background(), testTask(t))
	require.NoError(t, err)

	assert.Contains(t, out.String(), "cannot buy and sell the same company")
	assert.Equal(t, []string{"2330"}, decision.Buy)
	assert.Equal(t, []string{"2454"}, decision.Sell)
}

func TestAnnotateUnknownCodeReprompts(t *testing.T) {
	p, out := scripted(testCompanies,
		"9999", // not in the reference list
		"2330",
		"",
		"known code only",
		"y",
	)

	decision, err := p.Annotate(context.Background(), testTask(t))
	require.NoError(t, err)

	assert.Contains(t, out.String(), "unknown company codes: 9999")
	assert.Equal(t, []string{"2330"}, decision.Buy)
}

// Without a reference list any code is accepted as typed.
func TestAnnotateNoCompanyList(t *testing.T) {
	p, _ := scripted(nil, "9999", "", "", "y")

	decision, err := p.Annotate(context.Background(), testTask(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"9999"}, decision.Buy)
}

func TestAnnotateRejectedConfirmationStartsOver(t *testing.T) {
	p, _ := scripted(testCompanies,
		"2330", "", "first take", "n",
		"2317", "", "second take", "y",
	)

	decision, err := p.Annotate(context.Background(), testTask(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"2317"}, decision.Buy)
	assert.Equal(t, "second take", decision.Reason)
}

func TestAnnotateListCompanies(t *testing.T) {
	p, out := scripted(testCompanies, "?", "2330", "", "", "y")

	_, err := p.Annotate(context.Background(), testTask(t))
	require.NoError(t, err)
	assert.Contains(t, out.String(), "2330  TSMC")
	assert.Contains(t, out.String(), "2454  MediaTek")
}

func TestAnnotateQuit(t *testing.T) {
	p, _ := scripted(testCompanies, "q")

	_, err := p.Annotate(context.Background(), testTask(t))
	assert.True(t, errors.Is(err, session.ErrQuit))
}

func TestAnnotateQuitMidDecision(t *testing.T) {
	p, _ := scripted(testCompanies, "2330", "q")

	_, err := p.Annotate(context.Background(), testTask(t))
	assert.True(t, errors.Is(err, session.ErrQuit))
}

func TestAnnotateEOFQuits(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader(""), &out, nil)

	_, err := p.Annotate(context.Background(), testTask(t))
	assert.True(t, errors.Is(err, session.ErrQuit))
}

func TestAnnotateCancelledContext(t *testing.T) {
	p, _ := scripted(testCompanies, "2330", "", "", "y")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Annotate(ctx, testTask(t))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSplitCodes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", []string{}},
		{"single", "2330", []string{"2330"}},
		{"spaced", " 2330 , 2317 ", []string{"2330", "2317"}},
		{"duplicates collapsed", "2330,2330,2317", []string{"2330", "2317"}},
		{"empty parts dropped", "2330,,2317,", []string{"2330", "2317"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitCodes(tt.input))
		})
	}
}

func TestIntersect(t *testing.T) {
	assert.Empty(t, intersect([]string{"a"}, []string{"b"}))
	assert.Equal(t, []string{"b"}, intersect([]string{"a", "b"}, []string{"b", "c"}))
}
