package health

import (
	"fmt"
	"regexp"
	"time"

	"github.com/dlclark/regexp2"
)

// slashForm matches patterns written as /body/flags.
var slashForm = regexp.MustCompile(`^/(.+)/([gimsuy]*)$`)

// matchTimeout bounds a single match so a pathological pattern cannot stall
// a cycle.
const matchTimeout = 100 * time.Millisecond

// FilterByRegex returns the names matched by at least one pattern, keeping
// the order of names.
//
// Patterns are either plain expressions ("^db:") or slash notation with
// flags ("/^db:/i") and follow JavaScript semantics. Lookaround is supported.
// Patterns that do not compile are skipped.
func FilterByRegex(names, patterns []string) []string {
	compiled := make([]*pattern, 0, len(patterns))
	for _, p := range patterns {
		pat, err := compilePattern(p)
		if err != nil {
			continue
		}
		compiled = append(compiled, pat)
	}

	matched := make([]string, 0, len(names))
	for _, name := range names {
		for _, pat := range compiled {
			if pat.match(name) {
				matched = append(matched, name)
				break
			}
		}
	}
	return matched
}

// pattern is a compiled filter expression.
type pattern struct {
	re *regexp2.Regexp

	// sticky anchors the match at the start of the input (flag y).
	sticky bool
}

// match reports whether s matches. A match error is a timeout and counts as
// no match.
func (p *pattern) match(s string) bool {
	m, err := p.re.FindStringMatch(s)
	if err != nil || m == nil {
		return false
	}
	return !p.sticky || m.Index == 0
}

func compilePattern(p string) (*pattern, error) {
	body, opts := p, regexp2.RegexOptions(regexp2.ECMAScript)
	sticky := false

	if m := slashForm.FindStringSubmatch(p); m != nil {
		body = m[1]
		seen := make(map[rune]bool, len(m[2]))
		for _, f := range m[2] {
			if seen[f] {
				return nil, fmt.Errorf("duplicate flag %q in %s", f, p)
			}
			seen[f] = true

			switch f {
			case 'i':
				opts |= regexp2.IgnoreCase
			case 'm':
				opts |= regexp2.Multiline
			case 's':
				opts |= regexp2.Singleline
			case 'y':
				sticky = true
			}
		}
	}

	re, err := regexp2.Compile(body, opts)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = matchTimeout
	return &pattern{re: re, sticky: sticky}, nil
}
