//go:build property

package render

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func markupString() gopter.Gen {
	return gen.RegexMatch(`^[a-zA-Z0-9 <>&"'/;#]{0,40}$`)
}

// TestEscapeProperties validates the escaping table and its single-pass behaviour
func TestEscapeProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1357)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("escaped text contains no raw special characters", prop.ForAll(
		func(s string) bool {
			escaped := Escape(s)
			return !strings.ContainsAny(escaped, `<>"'/`)
		},
		markupString(),
	))

	properties.Property("unescaping restores the input", prop.ForAll(
		func(s string) bool {
			r := strings.NewReplacer("&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#39;", "'", "&#x2F;", "/", "&amp;", "&")
			return r.Replace(Escape(s)) == s
		},
		markupString(),
	))

	properties.Property("arbitrary bytes survive a round trip", prop.ForAll(
		func(raw []uint8) bool {
			s := string(raw)
			r := strings.NewReplacer("&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#39;", "'", "&#x2F;", "/", "&amp;", "&")
			return r.Replace(Escape(s)) == s
		},
		gen.SliceOf(gen.UInt8()),
	))

	properties.Property("escaping twice differs from escaping once when specials exist", prop.ForAll(
		func(s string) bool {
			once := Escape(s)
			twice := Escape(once)
			if strings.ContainsAny(s, `&<>"'/`) {
				return once != twice
			}
			return once == twice && once == s
		},
		markupString(),
	))

	properties.Property("size hint margin stays within bounds", prop.ForAll(
		func(n int) bool {
			margin := SizeHint(n) - n
			return margin >= MinSizeMargin && margin <= MaxSizeMargin
		},
		gen.IntRange(0, 1<<20),
	))

	properties.TestingRun(t)
}
