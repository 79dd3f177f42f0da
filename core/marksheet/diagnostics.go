package marksheet

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/marksheet/core/canvas"
)

// suggestions below this similarity ratio are not offered
const suggestionCutoff = 0.6

// Warning flags a placeholder nothing will resolve when the template is rendered.
type Warning struct {
	Placeholder string `json:"placeholder"`
	Suggestion  string `json:"suggestion,omitempty"`
	Message     string `json:"message"`
}

// Diagnose lists the placeholders of doc missing from known, in order of first use,
// each with the closest known key when one is similar enough.
func Diagnose(doc canvas.Document, known []string) []Warning {
	set := make(map[string]struct{}, len(known))
	for _, k := range known {
		set[k] = struct{}{}
	}

	var warnings []Warning
	for _, key := range canvas.DocumentPlaceholders(doc) {
		if _, ok := set[key]; ok {
			continue
		}
		w := Warning{Placeholder: key, Message: fmt.Sprintf("unknown placeholder {{%s}}", key)}
		if s := closestMatch(key, known); s != "" {
			w.Suggestion = s
			w.Message += fmt.Sprintf(", did you mean {{%s}}?", s)
		}
		warnings = append(warnings, w)
	}
	return warnings
}

// closestMatch returns the candidate most similar to word, ignoring case.
func closestMatch(word string, candidates []string) string {
	var best string
	bestRatio := suggestionCutoff
	a := strings.Split(strings.ToLower(word), "")
	for _, c := range candidates {
		m := difflib.NewMatcher(a, strings.Split(strings.ToLower(c), ""))
		if r := m.Ratio(); r > bestRatio || (r == bestRatio && best == "") {
			best, bestRatio = c, r
		}
	}
	return best
}
