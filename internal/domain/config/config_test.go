package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainerr "kumo/internal/domain/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "site.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
site:
  title: Notes
  site_url: https://example.com
  mode: dark
render:
  math:
    engine: katex
  embed:
    rescan_delay: 250ms
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Notes", cfg.Site.Title)
	assert.True(t, cfg.Site.IsDark())
	assert.Equal(t, MathEngineKaTeX, cfg.Render.Math.Engine)
	assert.Equal(t, 250*time.Millisecond, cfg.Render.Embed.RescanDelay)
	// untouched sections keep their defaults
	assert.Equal(t, "mermaid", cfg.Render.Diagram.Language)
	assert.Equal(t, "articles", cfg.Build.SourceDir)
	assert.False(t, cfg.Build.Now.IsZero())
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Site.Title = " "
	cfg.Site.SiteURL = "ftp://example.com"
	cfg.Site.Mode = "sepia"
	cfg.Build.BasePath = "docs/"
	cfg.Render.Math.Engine = "mathjax"
	cfg.Render.TOC.BottomFraction = 1.5

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerr.ErrInvalid))

	var ve domainerr.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.ElementsMatch(t, []string{
		"site.title",
		"site.site_url",
		"site.mode",
		"build.base_path",
		"build.base_path",
		"render.math.engine",
		"render.toc.bottom_fraction",
	}, ve.Fields())
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Site.Title, cfg.Site.Title)
}

func TestLoadRejectsBrokenYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "site: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestValidateHintsAcceptedValues(t *testing.T) {
	cfg := Default()
	cfg.Render.Math.Engine = "mathjax"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown engine "mathjax"`)
	assert.Contains(t, domainerr.Hints(err), "render.math.engine: use mathml or katex")
}
