package mesh

import (
	"fmt"
	"math/rand"
)

// defaultAdjectives and defaultNouns back the "default" name theme.
var defaultAdjectives = []string{
	"brisk", "quiet", "amber", "nimble", "steady", "keen", "wry", "bold",
	"calm", "vivid", "sly", "plain", "sharp", "mellow", "spry",
}

var defaultNouns = []string{
	"wren", "otter", "falcon", "heron", "badger", "lynx", "sparrow",
	"marten", "kestrel", "vole", "tern", "mink", "plover", "stoat",
}

// NameWords is the resolved word pool for a theme.
type NameWords struct {
	Adjectives []string
	Nouns      []string
}

// Themes maps a theme name to its word pool. "default" is always present.
type Themes struct {
	pools map[string]NameWords
}

// NewThemes builds a Themes table seeded with the compiled default pool,
// optionally overridden/extended by config-supplied words for the named
// theme.
func NewThemes(configTheme string, configWords NameWords) *Themes {
	t := &Themes{pools: map[string]NameWords{
		"default": {Adjectives: defaultAdjectives, Nouns: defaultNouns},
	}}
	if configTheme != "" && (len(configWords.Adjectives) > 0 || len(configWords.Nouns) > 0) {
		pool := NameWords{Adjectives: configWords.Adjectives, Nouns: configWords.Nouns}
		if len(pool.Adjectives) == 0 {
			pool.Adjectives = defaultAdjectives
		}
		if len(pool.Nouns) == 0 {
			pool.Nouns = defaultNouns
		}
		t.pools[configTheme] = pool
	}
	return t
}

// Generate mints a themed "adjective-noun" name, retrying against
// existing to avoid a collision. After exhausting the word-pair space it
// appends a numeric suffix.
func (t *Themes) Generate(theme string, existing map[string]bool) string {
	pool, ok := t.pools[theme]
	if !ok {
		pool = t.pools["default"]
	}
	for attempt := 0; attempt < len(pool.Adjectives)*len(pool.Nouns); attempt++ {
		adj := pool.Adjectives[rand.Intn(len(pool.Adjectives))]
		noun := pool.Nouns[rand.Intn(len(pool.Nouns))]
		name := fmt.Sprintf("%s-%s", adj, noun)
		if !existing[name] {
			return name
		}
	}
	for suffix := 2; ; suffix++ {
		name := fmt.Sprintf("%s-%s-%d", pool.Adjectives[rand.Intn(len(pool.Adjectives))], pool.Nouns[rand.Intn(len(pool.Nouns))], suffix)
		if !existing[name] {
			return name
		}
	}
}
