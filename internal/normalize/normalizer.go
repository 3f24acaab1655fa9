// Package normalize canonicalizes raw drug names into comparison keys.
// Two names that normalize to the same key are treated as the same generic
// drug for merge purposes — an approximate, syntactic definition of identity.
package normalize

import (
	"regexp"
	"strings"
)

// Leading stereoisomer/optical-isomer markers, matched case-insensitively
// against the lowercased input
var stereoPrefixes = []string{
	"(r)-",
	"(s)-",
	"(rs)-",
	"(+)-",
	"(-)-",
	"(+/-)-",
	"dl-",
	"l-",
	"d-",
}

// Trailing salt-form, hydration-state, and dosage-form suffixes. Each pattern
// is anchored to end-of-string and applied independently in list order.
var suffixWords = []string{
	"hydrochloride",
	"hcl",
	"sodium",
	"potassium",
	"calcium",
	"magnesium",
	"sulfate",
	"phosphate",
	"citrate",
	"tartrate",
	"maleate",
	"fumarate",
	"succinate",
	"acetate",
	"benzoate",
	"mesylate",
	"tosylate",
	"besylate",
	"pamoate",
	"embonate",
	"dihydrate",
	"monohydrate",
	"anhydrous",
	"free base",
	"base",
	"salt",
	"injection",
	"tablets",
	"tablet",
	"capsules",
	"capsule",
	"solution",
	"suspension",
	"extended-release",
	"extended release",
	"immediate-release",
	"immediate release",
	"usp",
	"nf",
}

// Normalizer canonicalizes raw drug names. It is pure and deterministic:
// no I/O, no errors, empty input yields empty output.
type Normalizer struct {
	suffixPatterns []*regexp.Regexp
	nonAlnum       *regexp.Regexp
}

// New creates a normalizer with the fixed prefix/suffix tables compiled
func New() *Normalizer {
	patterns := make([]*regexp.Regexp, 0, len(suffixWords))
	for _, w := range suffixWords {
		// Require a separator before the suffix so fused names survive,
		// and tolerate a trailing period ("tablets, USP.").
		word := regexp.QuoteMeta(w)
		word = strings.ReplaceAll(word, `\-`, `[\s-]`)
		word = strings.ReplaceAll(word, ` `, `[\s-]`)
		patterns = append(patterns, regexp.MustCompile(`[\s,-]+`+word+`\.?\s*$`))
	}
	return &Normalizer{
		suffixPatterns: patterns,
		nonAlnum:       regexp.MustCompile(`[^a-z0-9\s]`),
	}
}

// Normalize lowercases and trims the raw name, strips stereoisomer prefixes
// and salt/form suffixes, drops punctuation, and collapses whitespace.
// Normalize is idempotent: applying it to its own output is a no-op.
func (n *Normalizer) Normalize(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" {
		return ""
	}

	name = n.stripPrefixes(name)
	name = n.stripSuffixes(name)

	name = n.nonAlnum.ReplaceAllString(name, " ")
	name = strings.Join(strings.Fields(name), " ")

	// Prefix/suffix markers can be uncovered by punctuation removal or by an
	// outer suffix being stripped first; repeat until stable so the result
	// is a fixed point of the whole pass.
	for {
		again := n.stripSuffixes(n.stripPrefixes(name))
		again = n.nonAlnum.ReplaceAllString(again, " ")
		again = strings.Join(strings.Fields(again), " ")
		if again == name {
			return name
		}
		name = again
	}
}

func (n *Normalizer) stripPrefixes(name string) string {
	for _, p := range stereoPrefixes {
		if strings.HasPrefix(name, p) {
			name = strings.TrimSpace(strings.TrimPrefix(name, p))
		}
	}
	return name
}

func (n *Normalizer) stripSuffixes(name string) string {
	for _, p := range n.suffixPatterns {
		name = p.ReplaceAllString(name, "")
	}
	return strings.TrimSpace(name)
}
