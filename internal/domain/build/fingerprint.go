package build

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Fingerprint identifies one rendered form of an article. Any input that can
// change the output HTML contributes a hash.
type Fingerprint struct {
	ContentHash  string
	ThemeHash    string
	ConfigHash   string
	RendererHash string
	RenderHash   string
}

func NewFingerprint(contentHash string, theme, cfg any, renderer string) Fingerprint {
	f := Fingerprint{
		ContentHash:  contentHash,
		ThemeHash:    HashValue(theme),
		ConfigHash:   HashValue(cfg),
		RendererHash: HashValue(renderer),
	}
	f.ComputeRenderHash()
	return f
}

func (f *Fingerprint) ComputeRenderHash() {
	h := sha256.New()
	h.Write([]byte(f.ContentHash))
	h.Write([]byte{0})
	h.Write([]byte(f.ThemeHash))
	h.Write([]byte{0})
	h.Write([]byte(f.ConfigHash))
	h.Write([]byte{0})
	h.Write([]byte(f.RendererHash))
	f.RenderHash = hex.EncodeToString(h.Sum(nil))
}

// HashValue hashes the JSON form of v. Values that cannot be encoded hash
// to the empty string.
func HashValue(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
