package diagram

import (
	"context"
	"os/exec"

	"github.com/cockroachdb/errors"
	"go.abhg.dev/goldmark/mermaid"
)

// Engine turns diagram source into SVG markup.
type Engine interface {
	Render(ctx context.Context, id, source string) (string, error)
}

// ErrEngineUnavailable means no diagram engine could be found.
var ErrEngineUnavailable = errors.New("diagram engine unavailable")

// MermaidCLI renders through the mermaid-cli (mmdc) binary.
type MermaidCLI struct {
	compiler *mermaid.CLICompiler
}

// NewMermaidCLI locates the mmdc binary. theme is a mermaid theme name such as
// "default" or "dark".
func NewMermaidCLI(path, theme string) (*MermaidCLI, error) {
	if path == "" {
		path = "mmdc"
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "look up %s", path), ErrEngineUnavailable)
	}
	return &MermaidCLI{
		compiler: &mermaid.CLICompiler{
			CLI:   mermaid.MMDC(resolved),
			Theme: theme,
		},
	}, nil
}

func (m *MermaidCLI) Render(ctx context.Context, id, source string) (string, error) {
	resp, err := m.compiler.Compile(ctx, &mermaid.CompileRequest{Source: source})
	if err != nil {
		return "", errors.Wrapf(err, "mmdc %s", id)
	}
	return resp.SVG, nil
}
