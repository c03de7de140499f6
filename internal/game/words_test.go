package game

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLanguage(t *testing.T) {
	cases := map[string]string{
		"":         "en",
		"English":  "en",
		" HINDI ":  "hi",
		"हिन्दी":   "hi",
		"Tamil":    "ta",
		"ja":       "ja",
		"Klingon":  "klingon",
		"Español":  "es",
		"bengali":  "bn",
		"ENG":      "en",
		"Deutsch ": "de",
	}
	for input, want := range cases {
		assert.Equal(t, want, NormalizeLanguage(input), "input %q", input)
	}
}

func TestNormalizeScript(t *testing.T) {
	assert.Equal(t, ScriptPhonetic, NormalizeScript(""))
	assert.Equal(t, ScriptPhonetic, NormalizeScript("Roman"))
	assert.Equal(t, ScriptNative, NormalizeScript("NATIVE"))
	assert.Equal(t, ScriptNative, NormalizeScript("devanagari"))
	assert.Equal(t, ScriptBase, NormalizeScript("English"))
	assert.Equal(t, ScriptPhonetic, NormalizeScript("cursive"))
}

func newTestGateway(source TranslationSource) *WordGateway {
	gateway := NewWordGateway(source, zerolog.Nop())
	gateway.shuffle = func(int, func(int, int)) {}
	return gateway
}

func seedAnimals() *MemoryTranslationSource {
	source := NewMemoryTranslationSource()
	source.Add(7, "cat", "en", ScriptPhonetic, "cat")
	source.Add(7, "dog", "en", ScriptPhonetic, "dog")
	source.Add(7, "owl", "en", ScriptPhonetic, "owl")
	source.Add(7, "yak", "en", ScriptPhonetic, "yak")
	source.Add(7, "cat", "hi", ScriptPhonetic, "billi")
	source.Add(7, "dog", "hi", ScriptNative, "कुत्ता")
	source.Add(7, "owl", "hi", ScriptPhonetic, "ullu")
	source.Add(7, "owl", "hi", ScriptNative, "उल्लू")
	return source
}

func TestWordsResolutionOrder(t *testing.T) {
	ctx := context.Background()
	gateway := newTestGateway(seedAnimals())

	words, err := gateway.Words(ctx, 7, "Hindi", "phonetic", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"billi", "कुत्ता", "ullu", "yak"}, words)

	words, err = gateway.Words(ctx, 7, "hindi", "english", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "dog", "owl", "yak"}, words)

	words, err = gateway.Words(ctx, 7, "", "native", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "dog", "owl", "yak"}, words)
}

func TestWordsSkipsEntriesWithoutTranslation(t *testing.T) {
	source := NewMemoryTranslationSource()
	source.Add(3, "sun", "ta", ScriptNative, "சூரியன்")
	source.Add(3, "moon", "fr", ScriptPhonetic, "lune")

	words, err := newTestGateway(source).Words(context.Background(), 3, "tamil", "phonetic", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"சூரியன்"}, words)
}

func TestWordsLimit(t *testing.T) {
	words, err := newTestGateway(seedAnimals()).Words(context.Background(), 7, "en", "", 2)
	require.NoError(t, err)
	assert.Len(t, words, 2)
}

func TestWordOptionsTopsUpFromGenericList(t *testing.T) {
	source := NewMemoryTranslationSource()
	source.Add(9, "apple", "en", ScriptPhonetic, "Apple")

	options := newTestGateway(source).WordOptions(context.Background(), 9, "en", "phonetic")
	assert.Equal(t, []string{"Apple", "house", "tree"}, options)

	options = newTestGateway(nil).WordOptions(context.Background(), 0, "", "")
	assert.Equal(t, []string{"apple", "house", "tree"}, options)
}

type failingSource struct{}

func (failingSource) Lookup(context.Context, uint, string, string) (map[string]string, error) {
	return nil, errors.New("database unavailable")
}

func TestWordOptionsSurvivesLookupFailure(t *testing.T) {
	options := newTestGateway(failingSource{}).WordOptions(context.Background(), 4, "en", "")
	assert.Len(t, options, wordChoiceCount)

	_, err := newTestGateway(failingSource{}).Words(context.Background(), 4, "en", "", 3)
	assert.Error(t, err)
}
