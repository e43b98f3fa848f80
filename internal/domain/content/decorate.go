package content

var gradientPalettes = []string{
	"linear-gradient(135deg, #667eea 0%, #764ba2 100%)",
	"linear-gradient(135deg, #f093fb 0%, #f5576c 100%)",
	"linear-gradient(135deg, #4facfe 0%, #00f2fe 100%)",
	"linear-gradient(135deg, #43e97b 0%, #38f9d7 100%)",
	"linear-gradient(135deg, #fa709a 0%, #fee140 100%)",
	"linear-gradient(135deg, #30cfd0 0%, #330867 100%)",
	"linear-gradient(135deg, #a8edea 0%, #fed6e3 100%)",
	"linear-gradient(135deg, #ff9a9e 0%, #fecfef 100%)",
	"linear-gradient(135deg, #ffecd2 0%, #fcb69f 100%)",
	"linear-gradient(135deg, #ff6e7f 0%, #bfe9ff 100%)",
	"linear-gradient(135deg, #e0c3fc 0%, #8ec5fc 100%)",
	"linear-gradient(135deg, #a1c4fd 0%, #c2e9fb 100%)",
	"linear-gradient(135deg, #d299c2 0%, #fef9d7 100%)",
}

var cardEmojis = []string{
	"📝", "🚀", "💡", "🎨", "🔧", "📚", "🌟", "💻",
	"🎯", "🔥", "✨", "🎪", "🎭", "🎬", "🎤", "🎧",
	"🌈", "🌸", "🌺", "🌻", "🌼", "🌷", "🌹", "🍀",
	"🌙", "⭐", "⚡", "🔮", "💎", "🎁", "🎀", "🏆",
}

// hashString is the classic 31-multiplier hash over UTF-16 code units, kept as int32
// so a slug maps to the same card decoration everywhere.
func hashString(s string) uint32 {
	var h int32
	for _, r := range s {
		if r >= 0x10000 {
			r -= 0x10000
			h = h<<5 - h + int32(0xD800+(r>>10))
			h = h<<5 - h + int32(0xDC00+(r&0x3FF))
			continue
		}
		h = h<<5 - h + int32(r)
	}
	if h < 0 {
		return uint32(-int64(h))
	}
	return uint32(h)
}

func GradientFor(slug string) string {
	return gradientPalettes[hashString(slug)%uint32(len(gradientPalettes))]
}

func EmojiFor(slug string) string {
	return cardEmojis[hashString(slug)%uint32(len(cardEmojis))]
}
