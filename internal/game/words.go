package game

import (
	"context"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

const (
	BaseLanguage   = "en"
	ScriptPhonetic = "phonetic"
	ScriptNative   = "native"
	// ScriptBase is a script request that asks for the base language instead of
	// the display language.
	ScriptBase = "base"

	wordChoiceCount = 3
)

// TranslationSource returns the surface strings of a theme for one language and
// script, keyed by theme entry.
type TranslationSource interface {
	Lookup(ctx context.Context, themeID uint, language, script string) (map[string]string, error)
}

var languageAliases = map[string]string{
	"en": "en", "eng": "en", "english": "en", "en-us": "en", "en-gb": "en",
	"hi": "hi", "hin": "hi", "hindi": "hi", "हिन्दी": "hi", "हिंदी": "hi",
	"bn": "bn", "ben": "bn", "bengali": "bn", "bangla": "bn", "বাংলা": "bn",
	"ta": "ta", "tam": "ta", "tamil": "ta", "தமிழ்": "ta",
	"te": "te", "tel": "te", "telugu": "te", "తెలుగు": "te",
	"mr": "mr", "mar": "mr", "marathi": "mr", "मराठी": "mr",
	"gu": "gu", "guj": "gu", "gujarati": "gu", "ગુજરાતી": "gu",
	"kn": "kn", "kan": "kn", "kannada": "kn", "ಕನ್ನಡ": "kn",
	"ml": "ml", "mal": "ml", "malayalam": "ml", "മലയാളം": "ml",
	"pa": "pa", "pan": "pa", "punjabi": "pa", "ਪੰਜਾਬੀ": "pa",
	"ja": "ja", "jpn": "ja", "japanese": "ja", "日本語": "ja",
	"es": "es", "spa": "es", "spanish": "es", "español": "es",
	"fr": "fr", "fra": "fr", "french": "fr", "français": "fr",
	"de": "de", "deu": "de", "german": "de", "deutsch": "de",
}

var scriptAliases = map[string]string{
	"":               ScriptPhonetic,
	"phonetic":       ScriptPhonetic,
	"latin":          ScriptPhonetic,
	"roman":          ScriptPhonetic,
	"romanized":      ScriptPhonetic,
	"transliterated": ScriptPhonetic,
	"native":         ScriptNative,
	"original":       ScriptNative,
	"local":          ScriptNative,
	"devanagari":     ScriptNative,
	"base":           ScriptBase,
	"en":             ScriptBase,
	"english":        ScriptBase,
}

// NormalizeLanguage maps display names and codes in any casing to an internal
// language code. Unknown values come back trimmed and lower-cased; empty input
// means the base language.
func NormalizeLanguage(language string) string {
	key := strings.ToLower(strings.TrimSpace(language))
	if key == "" {
		return BaseLanguage
	}
	if code, ok := languageAliases[key]; ok {
		return code
	}
	return key
}

// NormalizeScript maps a requested script mode to phonetic, native or base.
func NormalizeScript(script string) string {
	key := strings.ToLower(strings.TrimSpace(script))
	if mode, ok := scriptAliases[key]; ok {
		return mode
	}
	return ScriptPhonetic
}

type translationChoice struct {
	Language string
	Script   string
}

// resolveTranslation decides which translation to serve and its fallbacks for
// one entry: the chosen script, the other script of the same language, then the
// base language's phonetic text.
func resolveTranslation(language, script string) []translationChoice {
	language = NormalizeLanguage(language)
	script = NormalizeScript(script)
	if language == BaseLanguage || script == ScriptBase {
		return []translationChoice{
			{Language: BaseLanguage, Script: ScriptPhonetic},
			{Language: BaseLanguage, Script: ScriptNative},
		}
	}
	return []translationChoice{
		{Language: language, Script: ScriptPhonetic},
		{Language: language, Script: ScriptNative},
		{Language: BaseLanguage, Script: ScriptPhonetic},
	}
}

var genericWords = []string{
	"apple", "house", "tree", "sun", "car", "fish", "star", "chair",
	"book", "flower", "cloud", "boat", "clock", "cat", "ball", "hat",
}

// WordGateway turns a theme plus requested language and script into surface
// word strings.
type WordGateway struct {
	source TranslationSource
	log    zerolog.Logger

	mu      sync.Mutex
	shuffle func(n int, swap func(i, j int))
}

func NewWordGateway(source TranslationSource, log zerolog.Logger) *WordGateway {
	return &WordGateway{
		source:  source,
		log:     log,
		shuffle: rand.Shuffle,
	}
}

// Words returns up to limit shuffled words. Entries without any acceptable
// translation are skipped.
func (g *WordGateway) Words(ctx context.Context, themeID uint, language, script string, limit int) ([]string, error) {
	if g == nil || g.source == nil || themeID == 0 || limit <= 0 {
		return nil, nil
	}
	chain := resolveTranslation(language, script)
	tables := make([]map[string]string, 0, len(chain))
	keys := make([]string, 0)
	seenKeys := make(map[string]struct{})
	for _, choice := range chain {
		table, err := g.source.Lookup(ctx, themeID, choice.Language, choice.Script)
		if err != nil {
			return nil, err
		}
		tables = append(tables, table)
		for key := range table {
			if _, ok := seenKeys[key]; ok {
				continue
			}
			seenKeys[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)

	words := make([]string, 0, len(keys))
	seenWords := make(map[string]struct{})
	for _, key := range keys {
		word := ""
		for _, table := range tables {
			if text := strings.TrimSpace(table[key]); text != "" {
				word = text
				break
			}
		}
		if word == "" {
			continue
		}
		normalized := normalizeGuess(word)
		if _, dup := seenWords[normalized]; dup {
			continue
		}
		seenWords[normalized] = struct{}{}
		words = append(words, word)
	}
	g.shuffleWords(words)
	if len(words) > limit {
		words = words[:limit]
	}
	return words, nil
}

// WordOptions always returns three candidates, topping up from the generic list
// when the theme cannot supply enough.
func (g *WordGateway) WordOptions(ctx context.Context, themeID uint, language, script string) []string {
	words, err := g.Words(ctx, themeID, language, script, wordChoiceCount)
	if err != nil {
		g.log.Error().Err(err).Uint("theme", themeID).Str("language", language).Msg("word lookup failed")
		words = nil
	}
	return g.topUp(words, wordChoiceCount)
}

func (g *WordGateway) topUp(words []string, want int) []string {
	if len(words) >= want {
		return words
	}
	pool := slices.Clone(genericWords)
	g.shuffleWords(pool)
	for _, candidate := range pool {
		if len(words) >= want {
			break
		}
		if slices.ContainsFunc(words, func(w string) bool { return normalizeGuess(w) == candidate }) {
			continue
		}
		words = append(words, candidate)
	}
	return words
}

func (g *WordGateway) shuffleWords(words []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.shuffle(len(words), func(i, j int) {
		words[i], words[j] = words[j], words[i]
	})
}

// MemoryTranslationSource is an in-process TranslationSource keyed by
// theme, language, script and entry.
type MemoryTranslationSource struct {
	mu      sync.RWMutex
	entries map[uint]map[translationChoice]map[string]string
}

func NewMemoryTranslationSource() *MemoryTranslationSource {
	return &MemoryTranslationSource{
		entries: make(map[uint]map[translationChoice]map[string]string),
	}
}

func (m *MemoryTranslationSource) Add(themeID uint, key, language, script, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byChoice := m.entries[themeID]
	if byChoice == nil {
		byChoice = make(map[translationChoice]map[string]string)
		m.entries[themeID] = byChoice
	}
	choice := translationChoice{Language: language, Script: script}
	table := byChoice[choice]
	if table == nil {
		table = make(map[string]string)
		byChoice[choice] = table
	}
	table[key] = text
}

func (m *MemoryTranslationSource) Lookup(_ context.Context, themeID uint, language, script string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	table := m.entries[themeID][translationChoice{Language: language, Script: script}]
	out := make(map[string]string, len(table))
	for key, text := range table {
		out[key] = text
	}
	return out, nil
}
