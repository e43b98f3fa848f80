// Package slug turns heading text into anchor ids.
package slug

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Fallback is used when nothing survives stripping.
const Fallback = "section"

var (
	punctRE  = regexp.MustCompile(`[\x{2000}-\x{206F}\x{2E00}-\x{2E7F}\x{3000}-\x{303F}'!"#$%&()*+,./:;<=>?@\[\\\]^` + "`" + `{|}~]`)
	spaceRE  = regexp.MustCompile(`\s+`)
	hyphenRE = regexp.MustCompile(`-+`)
)

// Slugify maps free heading text to an anchor-safe base slug. It never returns "".
func Slugify(text string) string {
	s := norm.NFKC.String(text)
	s = strings.ToLower(strings.TrimSpace(s))
	s = punctRE.ReplaceAllString(s, "")
	s = spaceRE.ReplaceAllString(s, "-")
	s = hyphenRE.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return Fallback
	}
	return s
}

// Registry hands out unique ids for one render pass.
// It is not safe for concurrent use; each render owns its own.
type Registry struct {
	counts  map[string]int
	emitted map[string]struct{}
}

func NewRegistry() *Registry {
	r := &Registry{}
	r.Reset()
	return r
}

// Reset forgets every id handed out so far.
func (r *Registry) Reset() {
	r.counts = make(map[string]int)
	r.emitted = make(map[string]struct{})
}

// Next returns the id for the next heading with the given text: the base slug on first
// sight, then base-1, base-2 and so on.
func (r *Registry) Next(text string) string {
	if r.counts == nil {
		r.Reset()
	}
	base := Slugify(text)
	n, seen := r.counts[base]
	id := base
	if seen {
		id = base + "-" + strconv.Itoa(n)
	}
	// a literal "a-1" heading may already own the suffixed candidate
	for {
		if _, taken := r.emitted[id]; !taken {
			break
		}
		n++
		id = base + "-" + strconv.Itoa(n)
	}
	r.counts[base] = n + 1
	r.emitted[id] = struct{}{}
	return id
}

// Len reports how many ids have been emitted since the last Reset.
func (r *Registry) Len() int {
	return len(r.emitted)
}
