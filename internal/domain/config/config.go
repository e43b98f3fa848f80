package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
	domainerr "kumo/internal/domain/errors"
)

type Config struct {
	Site   SiteConfig   `yaml:"site"`
	Build  BuildConfig  `yaml:"build"`
	Render RenderConfig `yaml:"render"`
	Serve  ServeConfig  `yaml:"serve"`
}

type SiteConfig struct {
	Title       string `yaml:"title"`
	Tagline     string `yaml:"tagline"`
	Author      string `yaml:"author"`
	SiteURL     string `yaml:"site_url"`
	Theme       string `yaml:"theme"`
	Mode        Mode   `yaml:"mode"`
	Language    string `yaml:"language"`
	Description string `yaml:"description"`
}

// Mode is the light/dark display mode that math, diagram and embed theming read.
type Mode string

const (
	ModeLight Mode = "light"
	ModeDark  Mode = "dark"
)

type BuildConfig struct {
	SourceDir    string    `yaml:"source_dir"`
	PublicDir    string    `yaml:"public_dir"`
	ThemeDir     string    `yaml:"theme_dir"`
	BasePath     string    `yaml:"base_path"`
	IncludeDraft bool      `yaml:"include_draft"`
	Now          time.Time `yaml:"-"`
}

type RenderConfig struct {
	Math      MathConfig      `yaml:"math"`
	Diagram   DiagramConfig   `yaml:"diagram"`
	Embed     EmbedConfig     `yaml:"embed"`
	Highlight HighlightConfig `yaml:"highlight"`
	TOC       TOCConfig       `yaml:"toc"`
}

type MathEngine string

const (
	MathEngineMathML MathEngine = "mathml"
	MathEngineKaTeX  MathEngine = "katex"
)

type MathConfig struct {
	Enabled  bool       `yaml:"enabled"`
	Engine   MathEngine `yaml:"engine"`
	AutoScan bool       `yaml:"auto_scan"`
}

type DiagramConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Language    string `yaml:"language"`
	MMDC        string `yaml:"mmdc"`
	Concurrency int    `yaml:"concurrency"`
}

type EmbedConfig struct {
	Enabled      bool          `yaml:"enabled"`
	WidgetScript string        `yaml:"widget_script"`
	RescanDelay  time.Duration `yaml:"rescan_delay"`
}

type HighlightConfig struct {
	Enabled bool `yaml:"enabled"`
}

type TOCConfig struct {
	TopMarginPx    float64 `yaml:"top_margin_px"`
	BottomFraction float64 `yaml:"bottom_fraction"`
}

type ServeConfig struct {
	Addr        string `yaml:"addr"`
	IndexPath   string `yaml:"index_path"`
	ArtifactURL string `yaml:"artifact_url"`
	Watch       bool   `yaml:"watch"`
}

func Default() Config {
	return Config{
		Site: SiteConfig{
			Title:    "KumoCode",
			Tagline:  "Modern Markdown Documentation Platform",
			SiteURL:  "http://localhost:8080",
			Theme:    "ocean",
			Mode:     ModeLight,
			Language: "ja",
		},
		Build: BuildConfig{
			SourceDir:    "articles",
			PublicDir:    "public",
			ThemeDir:     "themes",
			BasePath:     "",
			IncludeDraft: false,
			Now:          time.Now(),
		},
		Render: RenderConfig{
			Math: MathConfig{
				Enabled:  true,
				Engine:   MathEngineMathML,
				AutoScan: true,
			},
			Diagram: DiagramConfig{
				Enabled:     true,
				Language:    "mermaid",
				MMDC:        "mmdc",
				Concurrency: 4,
			},
			Embed: EmbedConfig{
				Enabled:      true,
				WidgetScript: "https://platform.twitter.com/widgets.js",
				RescanDelay:  100 * time.Millisecond,
			},
			Highlight: HighlightConfig{Enabled: true},
			TOC: TOCConfig{
				TopMarginPx:    100,
				BottomFraction: 0.66,
			},
		},
		Serve: ServeConfig{
			Addr:      ":8080",
			IndexPath: ".kumo/index.db",
			Watch:     true,
		},
	}
}

func (c Config) Validate() error {
	var ve domainerr.ValidationError

	if strings.TrimSpace(c.Site.Title) == "" {
		ve.Add("site.title", "must not be empty")
	}

	if strings.TrimSpace(c.Site.SiteURL) == "" {
		ve.Add("site.site_url", "must not be empty")
	} else if !isValidAbsURL(c.Site.SiteURL) {
		ve.Add("site.site_url", "must be a valid absolute URL")
	}

	switch c.Site.Mode {
	case "", ModeLight, ModeDark:
	default:
		ve.AddHint("site.mode", fmt.Sprintf("unknown mode %q", c.Site.Mode), "use light or dark")
	}

	if strings.TrimSpace(c.Site.Theme) == "" {
		ve.Add("site.theme", "must not be empty")
	}

	if strings.TrimSpace(c.Build.SourceDir) == "" {
		ve.Add("build.source_dir", "must not be empty")
	}
	if strings.TrimSpace(c.Build.PublicDir) == "" {
		ve.Add("build.public_dir", "must not be empty")
	}
	if strings.TrimSpace(c.Build.ThemeDir) == "" {
		ve.Add("build.theme_dir", "must not be empty")
	}
	if bp := strings.TrimSpace(c.Build.BasePath); bp != "" {
		if !strings.HasPrefix(bp, "/") {
			ve.Add("build.base_path", "must start with '/'")
		}
		if strings.HasSuffix(bp, "/") && bp != "/" {
			ve.Add("build.base_path", "must not end with '/'")
		}
	}

	switch c.Render.Math.Engine {
	case "", MathEngineMathML, MathEngineKaTeX:
	default:
		ve.AddHint("render.math.engine", fmt.Sprintf("unknown engine %q", c.Render.Math.Engine), "use mathml or katex")
	}
	if c.Render.Diagram.Enabled && strings.TrimSpace(c.Render.Diagram.Language) == "" {
		ve.Add("render.diagram.language", "must not be empty when diagrams are enabled")
	}
	if c.Render.Diagram.Concurrency < 0 {
		ve.Add("render.diagram.concurrency", "must not be negative")
	}
	if c.Render.Embed.RescanDelay < 0 {
		ve.Add("render.embed.rescan_delay", "must not be negative")
	}
	if c.Render.TOC.TopMarginPx < 0 {
		ve.Add("render.toc.top_margin_px", "must not be negative")
	}
	if f := c.Render.TOC.BottomFraction; f < 0 || f >= 1 {
		ve.AddHint("render.toc.bottom_fraction", "must be in [0, 1)", "0.66 ignores the lower third of the viewport")
	}

	if u := strings.TrimSpace(c.Serve.ArtifactURL); u != "" && !isValidAbsURL(u) {
		ve.Add("serve.artifact_url", "must be a valid absolute URL")
	}

	return ve.Err()
}

func isValidAbsURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}

	// fields present in the file override Default, the rest stay
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}

	if cfg.Build.Now.IsZero() {
		cfg.Build.Now = time.Now()
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func LoadOrDefault(path string) (Config, error) {
	cfg, err := Load(path)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		cfg = Default()
		return cfg, cfg.Validate()
	}
	return cfg, err
}

// IsDark reports whether the site renders in dark mode.
func (s SiteConfig) IsDark() bool {
	return s.Mode == ModeDark
}
