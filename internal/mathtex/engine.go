package mathtex

import (
	"bytes"
	"strings"
	"sync"

	katex "github.com/FurqanSoftware/goldmark-katex"
	"github.com/bluele/gcache"
	"github.com/cockroachdb/errors"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"kumo/internal/dom"
)

// ErrUnparseable marks TeX an engine could not typeset.
var ErrUnparseable = errors.New("unparseable tex")

// Engine typesets one TeX expression into HTML markup.
type Engine interface {
	Render(tex string, display bool) (string, error)
}

const cacheSize = 512

// KaTeX renders server-side with the KaTeX bundle embedded in goldmark-katex.
// Each expression runs in a fresh JS context, so results are cached per mode.
type KaTeX struct {
	once    sync.Once
	inline  gcache.Cache
	display gcache.Cache
}

func (k *KaTeX) Render(tex string, display bool) (out string, err error) {
	if err := CheckTeX(tex); err != nil {
		return "", err
	}
	k.once.Do(func() {
		k.inline = gcache.New(cacheSize).LRU().Build()
		k.display = gcache.New(cacheSize).LRU().Build()
	})
	cache := k.inline
	if display {
		cache = k.display
	}
	if v, err := cache.Get(tex); err == nil {
		return v.(string), nil
	}

	defer func() {
		if p := recover(); p != nil {
			out = ""
			err = errors.Wrapf(ErrUnparseable, "katex: %v", p)
		}
	}()
	var buf bytes.Buffer
	if err := katex.Render(&buf, []byte(tex), display); err != nil {
		return "", errors.Wrap(ErrUnparseable, err.Error())
	}
	out = strings.TrimSpace(buf.String())
	// a thrown ParseError comes back as its message text
	if !strings.HasPrefix(out, `<span class="katex`) {
		return "", errors.Wrapf(ErrUnparseable, "katex could not render %q: %s", tex, out)
	}
	_ = cache.Set(tex, out)
	return out, nil
}

var sharedKaTeX = &KaTeX{}

// MathML keeps only the MathML tree of the KaTeX output, so pages need
// neither the KaTeX stylesheet nor its fonts. A nil KaTeX uses a shared one.
type MathML struct {
	KaTeX *KaTeX
}

func (m MathML) Render(tex string, display bool) (string, error) {
	k := m.KaTeX
	if k == nil {
		k = sharedKaTeX
	}
	out, err := k.Render(tex, display)
	if err != nil {
		return "", err
	}
	return extractMath(out, display)
}

func extractMath(markup string, display bool) (string, error) {
	nodes, err := dom.ParseFragment(markup, dom.Element(atom.Div))
	if err != nil {
		return "", errors.Wrap(ErrUnparseable, err.Error())
	}
	var math *html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		if math != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == "math" {
			math = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	for _, n := range nodes {
		find(n)
	}
	if math == nil {
		return "", errors.Wrap(ErrUnparseable, "no mathml in katex output")
	}
	if display {
		dom.SetAttr(math, "display", "block")
	}
	math.Parent, math.PrevSibling, math.NextSibling = nil, nil, nil
	wrap := dom.Element(atom.Span)
	wrap.AppendChild(math)
	return dom.InnerHTML(wrap)
}

// CheckTeX rejects structurally broken TeX: unbalanced braces, mismatched
// \begin/\end environments, or unpaired \left/\right.
func CheckTeX(tex string) error {
	if strings.TrimSpace(tex) == "" {
		return errors.Wrap(ErrUnparseable, "empty expression")
	}
	depth := 0
	lr := 0
	var envs []string
	for i := 0; i < len(tex); i++ {
		switch tex[i] {
		case '\\':
			name, end := controlWord(tex, i+1)
			switch name {
			case "":
				// escaped symbol such as \{ or \$
				i++
				continue
			case "begin", "end":
				env, after, ok := braceArg(tex, end)
				if !ok {
					return errors.Wrapf(ErrUnparseable, "\\%s without environment name", name)
				}
				if name == "begin" {
					envs = append(envs, env)
				} else {
					if len(envs) == 0 || envs[len(envs)-1] != env {
						return errors.Wrapf(ErrUnparseable, "\\end{%s} does not close an open environment", env)
					}
					envs = envs[:len(envs)-1]
				}
				i = after - 1
				continue
			case "left":
				lr++
			case "right":
				lr--
				if lr < 0 {
					return errors.Wrap(ErrUnparseable, "\\right without \\left")
				}
			}
			i = end - 1
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return errors.Wrap(ErrUnparseable, "unbalanced '}'")
			}
		}
	}
	switch {
	case depth != 0:
		return errors.Wrap(ErrUnparseable, "unbalanced '{'")
	case len(envs) != 0:
		return errors.Wrapf(ErrUnparseable, "environment %s is never closed", envs[len(envs)-1])
	case lr != 0:
		return errors.Wrap(ErrUnparseable, "\\left without \\right")
	}
	return nil
}

func controlWord(s string, start int) (string, int) {
	end := start
	for end < len(s) && (s[end] >= 'a' && s[end] <= 'z' || s[end] >= 'A' && s[end] <= 'Z') {
		end++
	}
	return s[start:end], end
}

func braceArg(s string, start int) (string, int, bool) {
	i := start
	for i < len(s) && s[i] == ' ' {
		i++
	}
	if i >= len(s) || s[i] != '{' {
		return "", 0, false
	}
	closeIdx := strings.IndexByte(s[i:], '}')
	if closeIdx < 0 {
		return "", 0, false
	}
	return s[i+1 : i+closeIdx], i + closeIdx + 1, true
}

// EngineFor picks an engine by configured name.
func EngineFor(name string) (Engine, error) {
	switch name {
	case "", "mathml":
		return MathML{}, nil
	case "katex":
		return &KaTeX{}, nil
	default:
		return nil, errors.Newf("unknown math engine %q", name)
	}
}
