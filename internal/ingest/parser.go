package ingest

import (
	"bytes"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

var errNoFrontMatter = errors.New("no front matter found")
var errInvalidFrontMatter = errors.New("invalid front matter")

type FrontMatter struct {
	Title  string     `yaml:"title"`
	Date   string     `yaml:"date"`
	Author string     `yaml:"author"`
	Tags   StringList `yaml:"tags"`

	ColabURL string `yaml:"colabUrl"`
	DemoURL  string `yaml:"demoUrl"`
	RepoURL  string `yaml:"repoUrl"`

	Gradient string `yaml:"gradient"`
	Emoji    string `yaml:"emoji"`
	Draft    bool   `yaml:"draft"`
}

// StringList accepts either a YAML sequence or a comma separated scalar.
type StringList []string

func (l *StringList) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.SequenceNode:
		var items []string
		if err := n.Decode(&items); err != nil {
			return err
		}
		*l = items
	case yaml.ScalarNode:
		var out []string
		for _, part := range strings.Split(n.Value, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		*l = out
	default:
		return errors.Newf("line %d: tags must be a list or a string", n.Line)
	}
	return nil
}

// ParseFrontMatter splits raw into its YAML header and Markdown body.
// Without a header the whole input is the body and errNoFrontMatter is returned.
func ParseFrontMatter(raw []byte) (FrontMatter, []byte, error) {
	// normalize line endings
	norm := bytes.ReplaceAll(raw, []byte("\r\n"), []byte("\n"))
	norm = bytes.ReplaceAll(norm, []byte("\r"), []byte("\n"))
	norm = bytes.TrimPrefix(norm, []byte("\xef\xbb\xbf"))
	trimmed := bytes.TrimLeft(norm, " \t\n")

	const (
		sep      = "---"
		sepLine  = sep + "\n"
		closeMid = "\n" + sep + "\n"
	)

	if !bytes.HasPrefix(trimmed, []byte(sepLine)) {
		return FrontMatter{}, norm, errNoFrontMatter
	}

	rest := trimmed[len(sepLine):]

	var yamlPart, bodyPart []byte
	switch {
	case bytes.HasPrefix(rest, []byte(sepLine)):
		// "---\n---\n" is an empty header
		bodyPart = rest[len(sepLine):]
	default:
		if parts := bytes.SplitN(rest, []byte(closeMid), 2); len(parts) == 2 {
			yamlPart = parts[0]
			bodyPart = parts[1]
		} else if bytes.HasSuffix(rest, []byte("\n"+sep)) {
			yamlPart = rest[:len(rest)-len("\n"+sep)]
		} else if bytes.Equal(bytes.TrimSpace(rest), []byte(sep)) {
			yamlPart = nil
		} else {
			return FrontMatter{}, norm, errInvalidFrontMatter
		}
	}

	var fm FrontMatter
	if len(bytes.TrimSpace(yamlPart)) > 0 {
		if err := yaml.Unmarshal(yamlPart, &fm); err != nil {
			return FrontMatter{}, norm, errors.Wrap(err, "front matter yaml")
		}
	}
	return fm, bytes.TrimLeft(bodyPart, "\n"), nil
}

// ResolveSlug derives the article slug from its file name.
func ResolveSlug(path string) string {
	base := filepath.Base(path)
	return strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
}

func ParseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{
		time.RFC3339,
		time.DateOnly,
		"2006-01-02 15:04",
		time.DateTime,
		"2006/01/02",
	} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}
