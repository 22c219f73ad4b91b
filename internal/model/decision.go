package model

import (
	"fmt"
	"math"
	"time"
)

// Decision is what an annotator submits for one task.
type Decision struct {
	Buy    []string
	Sell   []string
	Reason string
}

// Validate checks the structural invariants of a decision. Buy and sell
// selections must not overlap; a company cannot be bought and sold on the
// same commentary.
func (d Decision) Validate() error {
	buys := make(map[string]struct{}, len(d.Buy))
	for _, code := range d.Buy {
		if code == "" {
			return fmt.Errorf("empty company code in buy list")
		}
		buys[code] = struct{}{}
	}
	for _, code := range d.Sell {
		if code == "" {
			return fmt.Errorf("empty company code in sell list")
		}
		if _, ok := buys[code]; ok {
			return fmt.Errorf("company %s appears in both buy and sell lists", code)
		}
	}
	return nil
}

// DecisionRecord is the persisted outcome of one annotator's judgment on one
// task. Its existence in storage is the sole completion signal for the task;
// there is no separate mark-complete step.
type DecisionRecord struct {
	Date     string   `json:"date"` // YYYY-MM-DD
	Source   string   `json:"source"`
	Scenario string   `json:"scenario"`
	Method   string   `json:"method"`
	Buy      []string `json:"buy"`
	Sell     []string `json:"sell"`
	Reason   string   `json:"reason"`
	Duration float64  `json:"duration"` // reading time in seconds
}

// TaskID reconstructs the composite key of the task this record belongs to.
func (r DecisionRecord) TaskID() (TaskID, error) {
	date, err := normalizeDate(r.Date)
	if err != nil {
		return TaskID{}, &MalformedTaskIDError{Raw: r.Date, Reason: err.Error()}
	}
	method := r.Method
	if method == "" {
		method = MethodHuman
	}
	return TaskID{
		Source:   r.Source,
		Date:     date,
		Scenario: Scenario(r.Scenario),
		Method:   method,
	}, nil
}

// NewDecisionRecord builds the persisted record for a task and decision.
// Duration is rounded to 4 decimal places.
func NewDecisionRecord(id TaskID, decision Decision, duration time.Duration) DecisionRecord {
	buy := decision.Buy
	if buy == nil {
		buy = []string{}
	}
	sell := decision.Sell
	if sell == nil {
		sell = []string{}
	}

	return DecisionRecord{
		Date:     id.ISODate(),
		Source:   id.Source,
		Scenario: string(id.Scenario),
		Method:   id.Method,
		Buy:      buy,
		Sell:     sell,
		Reason:   decision.Reason,
		Duration: math.Round(duration.Seconds()*10000) / 10000,
	}
}
