// ABOUTME: Accelerator string grammar: Mod+Mod+...+Key, parse and canonical render
// ABOUTME: Lenient on whitespace/case; rejects duplicate tokens and missing/extra keys

package accelerator

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// Modifier identifies one modifier key.
type Modifier string

const (
	ModCtrl             Modifier = "Ctrl"
	ModAlt              Modifier = "Alt"
	ModShift            Modifier = "Shift"
	ModSuper            Modifier = "Super"
	ModCommandOrControl Modifier = "CommandOrControl"
)

var modifierAliases = map[string]Modifier{
	"ctrl":             ModCtrl,
	"control":          ModCtrl,
	"alt":              ModAlt,
	"option":           ModAlt,
	"shift":            ModShift,
	"super":            ModSuper,
	"meta":             ModSuper,
	"win":              ModSuper,
	"windows":          ModSuper,
	"commandorcontrol": ModCommandOrControl,
	"cmdorctrl":        ModCommandOrControl,
}

// modifierOrder fixes canonical rendering order.
var modifierOrder = []Modifier{ModCommandOrControl, ModCtrl, ModAlt, ModShift, ModSuper}

var nonModifierKeys = buildKeySet()

func buildKeySet() map[string]string {
	set := make(map[string]string)
	add := func(canonical string) { set[strings.ToLower(canonical)] = canonical }

	for c := 'A'; c <= 'Z'; c++ {
		add(string(c))
	}
	for d := '0'; d <= '9'; d++ {
		add(string(d))
	}
	for i := 1; i <= 24; i++ {
		add(fmt.Sprintf("F%d", i))
	}
	for _, k := range []string{
		"Space", "Enter", "Tab", "Esc", "Up", "Down", "Left", "Right",
		"Home", "End", "PageUp", "PageDown", "Insert", "Delete", "Backspace",
	} {
		add(k)
	}
	for _, k := range []string{
		",", ".", "/", ";", "'", "[", "]", "-", "=", "`", "\\",
	} {
		add(k)
	}
	return set
}

// Accelerator is a parsed accelerator: a set of modifiers plus one key.
type Accelerator struct {
	Modifiers map[Modifier]bool
	Key       string // canonical form, e.g. "S", "F5", "Esc"
}

var fold = cases.Fold()

// Parse parses an accelerator string per the grammar in spec §4.6/§6.4:
// a '+'-separated, case-insensitive list of modifier tokens plus exactly one
// non-modifier key token. Whitespace around tokens is ignored. Duplicate
// tokens (after folding) are an error.
func Parse(s string) (Accelerator, error) {
	raw := strings.Split(s, "+")
	if len(raw) == 0 {
		return Accelerator{}, fmt.Errorf("accelerator: empty string")
	}

	seen := make(map[string]bool, len(raw))
	acc := Accelerator{Modifiers: make(map[Modifier]bool)}
	keyFound := false

	for _, tok := range raw {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			return Accelerator{}, fmt.Errorf("accelerator %q: empty token", s)
		}
		folded := fold.String(tok)
		if seen[folded] {
			return Accelerator{}, fmt.Errorf("accelerator %q: duplicate token %q", s, tok)
		}
		seen[folded] = true

		if mod, ok := modifierAliases[strings.ToLower(tok)]; ok {
			acc.Modifiers[mod] = true
			continue
		}

		canonical, ok := nonModifierKeys[strings.ToLower(tok)]
		if !ok {
			return Accelerator{}, fmt.Errorf("accelerator %q: unrecognized token %q", s, tok)
		}
		if keyFound {
			return Accelerator{}, fmt.Errorf("accelerator %q: more than one non-modifier key", s)
		}
		acc.Key = canonical
		keyFound = true
	}

	if !keyFound {
		return Accelerator{}, fmt.Errorf("accelerator %q: missing non-modifier key", s)
	}

	return acc, nil
}

// String renders the canonical form of the accelerator: fixed modifier
// order, '+'-joined, matching how Parse would re-parse it identically.
func (a Accelerator) String() string {
	var parts []string
	for _, m := range modifierOrder {
		if a.Modifiers[m] {
			parts = append(parts, string(m))
		}
	}
	parts = append(parts, a.Key)
	return strings.Join(parts, "+")
}

// Equal reports whether two accelerators denote the same binding.
func (a Accelerator) Equal(other Accelerator) bool {
	return a.String() == other.String()
}

// Canonicalize renders s through Parse then String, normalizing case,
// whitespace, and modifier order. It is the identity up to those
// normalizations for any string that parses.
func Canonicalize(s string) (string, error) {
	a, err := Parse(s)
	if err != nil {
		return "", err
	}
	return a.String(), nil
}

// SortedModifiers returns the accelerator's modifiers sorted by name
// (lexicographic, not the rendering order String uses), useful for
// diagnostics and tests that want a deterministic slice.
func (a Accelerator) SortedModifiers() []Modifier {
	var mods []Modifier
	for m := range a.Modifiers {
		mods = append(mods, m)
	}
	sort.Slice(mods, func(i, j int) bool { return mods[i] < mods[j] })
	return mods
}
