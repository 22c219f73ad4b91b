package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecisionValidate(t *testing.T) {
	tests := []struct {
		name     string
		decision Decision
		wantErr  string
	}{
		{
			name:     "disjoint buy and sell",
			decision: Decision{Buy: []string{"2330"}, Sell: []string{"2317"}},
		},
		{
			name:     "empty decision",
			decision: Decision{},
		},
		{
			name:     "overlapping code",
			decision: Decision{Buy: []string{"2330", "2317"}, Sell: []string{"2317"}},
			wantErr:  "both buy and sell",
		},
		{
			name:     "empty code in buy",
			decision: Decision{Buy: []string{""}},
			wantErr:  "empty company code",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.decision.Validate()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewDecisionRecord(t *testing.T) {
	id, err := ParseTaskID("chatgpt_20200915_morning_naive")
	require.NoError(t, err)

	record := NewDecisionRecord(id, Decision{
		Buy:    []string{"2330"},
		Reason: "strong momentum",
	}, 3141592*time.Microsecond)

	assert.Equal(t, "2020-09-15", record.Date)
	assert.Equal(t, "chatgpt", record.Source)
	assert.Equal(t, "morning", record.Scenario)
	assert.Equal(t, "naive", record.Method)
	assert.Equal(t, []string{"2330"}, record.Buy)
	assert.Equal(t, 3.1416, record.Duration, "duration rounds to 4 decimals")

	// Nil selections must serialize as [] rather than null.
	require.NotNil(t, record.Sell)
	data, err := json.Marshal(record)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"sell":[]`)
}

func TestDecisionRecordTaskID(t *testing.T) {
	original, err := ParseTaskID("human_20200915_closing")
	require.NoError(t, err)

	record := NewDecisionRecord(original, Decision{}, time.Second)
	rebuilt, err := record.TaskID()
	require.NoError(t, err)
	assert.Equal(t, original, rebuilt)
	assert.Equal(t, "human_20200915_closing", rebuilt.String())
}

func TestCompanyDisplay(t *testing.T) {
	c := Company{Code: "2330", Name: "TSMC"}
	assert.Equal(t, "2330  TSMC", c.Display())
	assert.Equal(t, "2330", CodeFromDisplay(c.Display()))
	assert.Equal(t, "", CodeFromDisplay("   "))
}
