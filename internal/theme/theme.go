// Package theme loads YAML site themes and answers mode-dependent questions
// for the render stages.
package theme

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"kumo/internal/domain/config"
)

var ErrNotFound = errors.New("theme not found")

type Colors struct {
	Primary       string `yaml:"primary" json:"primary"`
	Accent        string `yaml:"accent" json:"accent"`
	Background    string `yaml:"background" json:"background"`
	Surface       string `yaml:"surface" json:"surface"`
	TextPrimary   string `yaml:"text_primary" json:"text_primary"`
	TextSecondary string `yaml:"text_secondary" json:"text_secondary"`
	TextMuted     string `yaml:"text_muted" json:"text_muted"`
	Border        string `yaml:"border" json:"border"`
	CodeBG        string `yaml:"code_bg" json:"code_bg"`
	Link          string `yaml:"link" json:"link"`
	LinkHover     string `yaml:"link_hover" json:"link_hover"`
	HeaderText    string `yaml:"header_text" json:"header_text"`
}

type Gradients struct {
	Header    string `yaml:"header" json:"header"`
	CardHover string `yaml:"card_hover" json:"card_hover"`
}

type Backgrounds struct {
	HeaderImage string `yaml:"header_image" json:"header_image"`
	BodyImage   string `yaml:"body_image" json:"body_image"`
	CardImage   string `yaml:"card_image" json:"card_image"`
}

type Mode struct {
	Colors      Colors      `yaml:"colors" json:"colors"`
	Gradients   Gradients   `yaml:"gradients" json:"gradients"`
	Backgrounds Backgrounds `yaml:"backgrounds" json:"backgrounds"`
}

type Pair struct {
	Light string `yaml:"light" json:"light"`
	Dark  string `yaml:"dark" json:"dark"`
}

type Fonts struct {
	Primary string `yaml:"primary" json:"primary"`
	Code    string `yaml:"code" json:"code"`
}

type Styles struct {
	BorderRadius string `yaml:"border_radius" json:"border_radius"`
	CardShadow   string `yaml:"card_shadow" json:"card_shadow"`
	HeaderHeight string `yaml:"header_height" json:"header_height"`
	BackdropBlur string `yaml:"backdrop_blur" json:"backdrop_blur"`
}

type Theme struct {
	ID          string `yaml:"-" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Version     string `yaml:"version" json:"version"`
	Description string `yaml:"description" json:"description"`
	Fonts       Fonts  `yaml:"fonts" json:"fonts"`
	// HighlightThemes are stylesheet URLs for client-side highlighters.
	HighlightThemes Pair `yaml:"highlight_themes" json:"highlight_themes"`
	// HighlightStyles are chroma style names for server-side highlighting.
	HighlightStyles Pair   `yaml:"highlight_styles" json:"highlight_styles"`
	Light           Mode   `yaml:"light" json:"light"`
	Dark            Mode   `yaml:"dark" json:"dark"`
	Styles          Styles `yaml:"styles" json:"styles"`
}

type Summary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

// Default is used when the configured theme file does not exist.
func Default() Theme {
	return Theme{
		ID:              "default",
		Name:            "Default",
		Version:         "1.0.0",
		HighlightStyles: Pair{Light: "github", Dark: "monokai"},
		Light: Mode{Colors: Colors{
			Primary: "#2563eb", Background: "#ffffff", Surface: "#f8fafc",
			TextPrimary: "#0f172a", Border: "#e2e8f0", CodeBG: "#f1f5f9", Link: "#2563eb",
		}},
		Dark: Mode{Colors: Colors{
			Primary: "#60a5fa", Background: "#0f172a", Surface: "#1e293b",
			TextPrimary: "#f1f5f9", Border: "#334155", CodeBG: "#1e293b", Link: "#93c5fd",
		}},
	}
}

func (t *Theme) fillDefaults(id string) {
	t.ID = id
	if t.Name == "" {
		t.Name = id
	}
	if t.Version == "" {
		t.Version = "1.0.0"
	}
	if t.HighlightStyles.Light == "" {
		t.HighlightStyles.Light = "github"
	}
	if t.HighlightStyles.Dark == "" {
		t.HighlightStyles.Dark = "monokai"
	}
}

func (t Theme) Summary() Summary {
	return Summary{ID: t.ID, Name: t.Name, Description: t.Description, Version: t.Version}
}

func (t Theme) ForMode(m config.Mode) Mode {
	if m == config.ModeDark {
		return t.Dark
	}
	return t.Light
}

func (t Theme) ChromaStyle(m config.Mode) string {
	if m == config.ModeDark {
		return t.HighlightStyles.Dark
	}
	return t.HighlightStyles.Light
}

// MermaidTheme is the diagram theme matching the display mode.
func MermaidTheme(m config.Mode) string {
	if m == config.ModeDark {
		return "dark"
	}
	return "default"
}

// WidgetTheme is the data-theme for microblog placeholders.
func WidgetTheme(m config.Mode) string {
	if m == config.ModeDark {
		return "dark"
	}
	return "light"
}

// CSSVariables maps the mode's palette to custom properties on :root.
func (t Theme) CSSVariables(m config.Mode) string {
	mode := t.ForMode(m)
	vars := [][2]string{
		{"primary", mode.Colors.Primary},
		{"accent", mode.Colors.Accent},
		{"background", mode.Colors.Background},
		{"surface", mode.Colors.Surface},
		{"text-primary", mode.Colors.TextPrimary},
		{"text-secondary", mode.Colors.TextSecondary},
		{"text-muted", mode.Colors.TextMuted},
		{"border", mode.Colors.Border},
		{"code-bg", mode.Colors.CodeBG},
		{"link", mode.Colors.Link},
		{"link-hover", mode.Colors.LinkHover},
		{"header-text", mode.Colors.HeaderText},
		{"gradient-header", mode.Gradients.Header},
		{"gradient-card-hover", mode.Gradients.CardHover},
		{"font-primary", t.Fonts.Primary},
		{"font-code", t.Fonts.Code},
		{"border-radius", t.Styles.BorderRadius},
		{"card-shadow", t.Styles.CardShadow},
		{"header-height", t.Styles.HeaderHeight},
		{"backdrop-blur", t.Styles.BackdropBlur},
	}
	var b strings.Builder
	b.WriteString(":root {")
	for _, kv := range vars {
		if kv[1] == "" || strings.ContainsAny(kv[1], "{}<>;") {
			continue
		}
		fmt.Fprintf(&b, " --%s: %s;", kv[0], kv[1])
	}
	b.WriteString(" }")
	return b.String()
}

func themePath(dir, id string) (string, error) {
	for _, ext := range []string{".yaml", ".yml"} {
		p := filepath.Join(dir, id+ext)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", errors.Wrapf(ErrNotFound, "%s in %s", id, dir)
}

func Load(dir, id string) (Theme, error) {
	path, err := themePath(dir, id)
	if err != nil {
		return Theme{}, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Theme{}, errors.Wrapf(err, "read theme %s", path)
	}
	var t Theme
	if err := yaml.Unmarshal(b, &t); err != nil {
		return Theme{}, errors.Wrapf(err, "parse theme %s", path)
	}
	t.fillDefaults(id)
	return t, nil
}

// LoadOrDefault falls back to Default when the theme does not exist.
func LoadOrDefault(dir, id string) (Theme, error) {
	t, err := Load(dir, id)
	if errors.Is(err, ErrNotFound) {
		log.Printf("[warn] theme %q not found in %s, using default", id, dir)
		return Default(), nil
	}
	return t, err
}

// List returns every theme in dir that parses, sorted by id. Broken files are
// logged and skipped.
func List(dir string) ([]Theme, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "read theme dir %s", dir)
	}
	var out []Theme
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ext)
		t, err := Load(dir, id)
		if err != nil {
			log.Printf("[warn] skip theme %s: %v", e.Name(), err)
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
