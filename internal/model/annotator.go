package model

import "strings"

// NormalizeAnnotator turns a self-reported annotator name into its canonical
// storage key: trimmed, with interior whitespace runs collapsed to single
// underscores. Identity is string equality of this key; two people entering
// the same name collide, which is accepted behavior.
func NormalizeAnnotator(name string) string {
	return strings.Join(strings.Fields(name), "_")
}
