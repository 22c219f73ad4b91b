package model

import "strings"

// Company is one entry from the reference list used to populate buy/sell
// selections.
type Company struct {
	Code string
	Name string
}

// Display returns the selection label, "{code}  {name}".
func (c Company) Display() string {
	return c.Code + "  " + c.Name
}

// CodeFromDisplay recovers the company code from a selection label.
func CodeFromDisplay(display string) string {
	fields := strings.Fields(display)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
