package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTaskID(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    TaskID
		wantErr bool
	}{
		{
			name: "ai task with method",
			raw:  "chatgpt_20200915_morning_naive",
			want: TaskID{Source: "chatgpt", Date: "20200915", Scenario: ScenarioMorning, Method: "naive"},
		},
		{
			name: "human task without method",
			raw:  "human_20200915_morning",
			want: TaskID{Source: "human", Date: "20200915", Scenario: ScenarioMorning, Method: MethodHuman},
		},
		{
			name: "method containing underscores",
			raw:  "chatgpt_20200915_closing_base_on_only_market_info",
			want: TaskID{Source: "chatgpt", Date: "20200915", Scenario: ScenarioClosing, Method: "base_on_only_market_info"},
		},
		{
			name: "iso date is normalized",
			raw:  "chatgpt_2020-09-15_morning_topk",
			want: TaskID{Source: "chatgpt", Date: "20200915", Scenario: ScenarioMorning, Method: "topk"},
		},
		{
			name: "three-part ai task gets sentinel method",
			raw:  "chatgpt_20200915_closing",
			want: TaskID{Source: "chatgpt", Date: "20200915", Scenario: ScenarioClosing, Method: MethodHuman},
		},
		{
			name:    "single component",
			raw:     "bad",
			wantErr: true,
		},
		{
			name:    "two components",
			raw:     "human_20200915",
			wantErr: true,
		},
		{
			name:    "empty component",
			raw:     "chatgpt__morning",
			wantErr: true,
		},
		{
			name:    "garbage date",
			raw:     "chatgpt_notadate_morning",
			wantErr: true,
		},
		{
			name:    "impossible calendar date",
			raw:     "chatgpt_20201332_morning",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTaskID(tt.raw)

			if tt.wantErr {
				require.Error(t, err)
				var malformed *MalformedTaskIDError
				assert.True(t, errors.As(err, &malformed), "want MalformedTaskIDError, got %T", err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTaskIDRoundTrip(t *testing.T) {
	for _, raw := range []string{
		"chatgpt_20200915_morning_naive",
		"human_20200915_morning",
		"chatgpt_20200915_closing_base_on_topk_morning",
	} {
		id, err := ParseTaskID(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, id.String())
	}
}

func TestTaskIDISODate(t *testing.T) {
	id, err := ParseTaskID("human_20200915_closing")
	require.NoError(t, err)
	assert.Equal(t, "2020-09-15", id.ISODate())
}

func TestTaskIDIsHuman(t *testing.T) {
	human, err := ParseTaskID("human_20200915_morning")
	require.NoError(t, err)
	assert.True(t, human.IsHuman())

	ai, err := ParseTaskID("chatgpt_20200915_morning_naive")
	require.NoError(t, err)
	assert.False(t, ai.IsHuman())
}

func TestNormalizeAnnotator(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"alice", "alice"},
		{"  alice  ", "alice"},
		{"Alice Liddell", "Alice_Liddell"},
		{"a   b\tc", "a_b_c"},
		{"   ", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeAnnotator(tt.in), "input %q", tt.in)
	}
}
