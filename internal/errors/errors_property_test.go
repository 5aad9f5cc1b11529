//go:build property

package errors

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestSuggestProperties checks invariants of the name suggester.
func TestSuggestProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(2468)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("never suggests more than three names", prop.ForAll(
		func(name string, candidates []string) bool {
			return len(Suggest(name, candidates)) <= maxSuggestions
		},
		gen.AlphaString(),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.Property("never suggests the name itself", prop.ForAll(
		func(name string, candidates []string) bool {
			for _, s := range Suggest(name, append(candidates, name)) {
				if s == name {
					return false
				}
			}
			return true
		},
		gen.AlphaString(),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.Property("levenshtein is symmetric and bounded", prop.ForAll(
		func(a, b string) bool {
			d := levenshtein(a, b)
			return d == levenshtein(b, a) && d <= max(len(a), len(b))
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
