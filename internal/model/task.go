// Package model defines the core domain models used throughout the application.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Scenario identifies the trading-day segment a commentary covers.
type Scenario string

// Known scenarios. Unknown values are carried verbatim rather than rejected;
// the corpus is the source of truth.
const (
	ScenarioMorning Scenario = "morning"
	ScenarioClosing Scenario = "closing"
)

// MethodHuman is the sentinel method for human-written commentary and for any
// task identifier that carries no explicit method component.
const MethodHuman = "human"

// TaskID is the composite key identifying one corpus item.
//
// The wire form is underscore-delimited: "source_date_scenario[_method...]".
// At least three components are required; everything past the third is the
// method and may itself contain underscores. A three-component identifier has
// the sentinel method "human".
type TaskID struct {
	Source   string
	Date     string // compact calendar date, YYYYMMDD
	Scenario Scenario
	Method   string
}

// MalformedTaskIDError reports a task identifier that does not follow the
// grammar above.
type MalformedTaskIDError struct {
	Raw    string
	Reason string
}

func (e *MalformedTaskIDError) Error() string {
	return fmt.Sprintf("malformed task id %q: %s", e.Raw, e.Reason)
}

// ParseTaskID parses the wire form of a task identifier.
func ParseTaskID(raw string) (TaskID, error) {
	parts := strings.SplitN(raw, "_", 4)
	if len(parts) < 3 {
		return TaskID{}, &MalformedTaskIDError{
			Raw:    raw,
			Reason: fmt.Sprintf("need at least 3 underscore-delimited components, got %d", len(parts)),
		}
	}

	for i, p := range parts {
		if p == "" {
			return TaskID{}, &MalformedTaskIDError{
				Raw:    raw,
				Reason: fmt.Sprintf("empty component at position %d", i),
			}
		}
	}

	date, err := normalizeDate(parts[1])
	if err != nil {
		return TaskID{}, &MalformedTaskIDError{Raw: raw, Reason: err.Error()}
	}

	id := TaskID{
		Source:   parts[0],
		Date:     date,
		Scenario: Scenario(parts[2]),
		Method:   MethodHuman,
	}
	if len(parts) == 4 {
		id.Method = parts[3]
	}
	return id, nil
}

// String renders the wire form. The sentinel method is omitted so parsing and
// formatting round-trip.
func (id TaskID) String() string {
	if id.Method == "" || id.Method == MethodHuman {
		return strings.Join([]string{id.Source, id.Date, string(id.Scenario)}, "_")
	}
	return strings.Join([]string{id.Source, id.Date, string(id.Scenario), id.Method}, "_")
}

// ISODate returns the task date in YYYY-MM-DD form for decision records.
func (id TaskID) ISODate() string {
	t, err := time.Parse("20060102", id.Date)
	if err != nil {
		return id.Date
	}
	return t.Format("2006-01-02")
}

// IsHuman reports whether the task text is human-written commentary.
func (id TaskID) IsHuman() bool {
	return id.Source == MethodHuman
}

// normalizeDate accepts YYYYMMDD or YYYY-MM-DD and returns the compact form.
func normalizeDate(raw string) (string, error) {
	if t, err := time.Parse("20060102", raw); err == nil {
		return t.Format("20060102"), nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.Format("20060102"), nil
	}
	return "", fmt.Errorf("invalid date %q, want YYYYMMDD or YYYY-MM-DD", raw)
}
