// Package activity decides whether scraped timeline timestamps show recent
// activity.
package activity

import (
    "regexp"
    "strings"
)

// DefaultUnits are the relative-time units that count as recent: minutes,
// hours, days and weeks. Months ("mo") and years ("y", "yr") never match.
const DefaultUnits = "mhdw"

// Parser matches relative-time tokens such as "2h" or "1w" in free text.
type Parser struct {
    units   string
    pattern *regexp.Regexp
}

// NewParser builds a parser for the given unit letters. Anything that is not
// a lowercase ASCII letter is ignored; an empty set falls back to DefaultUnits.
func NewParser(units string) *Parser {
    var b strings.Builder
    seen := map[rune]bool{}
    for _, r := range units {
        if r < 'a' || r > 'z' || seen[r] {
            continue
        }
        seen[r] = true
        b.WriteRune(r)
    }
    clean := b.String()
    if clean == "" {
        clean = DefaultUnits
    }
    // The unit letter must end the word, so "3mo" is not read as 3 minutes.
    return &Parser{
        units:   clean,
        pattern: regexp.MustCompile(`[0-9][` + clean + `]\b`),
    }
}

func (p *Parser) Units() string { return p.units }

// Match reports whether text contains a recency token.
func (p *Parser) Match(text string) bool {
    return p.pattern.MatchString(text)
}

// Classify reports whether any of texts contains a recency token.
func (p *Parser) Classify(texts []string) bool {
    for _, t := range texts {
        if p.Match(t) {
            return true
        }
    }
    return false
}

// Hits returns the texts that matched, in input order.
func (p *Parser) Hits(texts []string) []string {
    var out []string
    for _, t := range texts {
        if p.Match(t) {
            out = append(out, t)
        }
    }
    return out
}
