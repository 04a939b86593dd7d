package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"Pitch Deck (v2).pdf":      "Pitch_Deck_v2_.pdf",
		"../../etc/passwd":         "passwd",
		`C:\Users\me\deck.pdf`:     "deck.pdf",
		"   ":                      "file",
		"...":                      "file",
		"résumé.pdf":               "r_sum_.pdf",
		"already-safe_name.v1.mp4": "already-safe_name.v1.mp4",
	}
	for input, expected := range cases {
		require.Equal(t, expected, SanitizeName(input), "input %q", input)
	}

	long := SanitizeName(repeat("a", 200) + ".pdf")
	require.Len(t, long, 120)
	require.Contains(t, long, ".pdf")
}

func TestObjectKeys(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	require.Equal(t, "decks/1700000000123-Q3_Deck.pdf", DeckKey("Q3 Deck.pdf", at))
	require.Equal(t, "slides/slide-4-1700000000123.png", SlideKey(4, at, ".png"))
	require.Equal(t, "slides/slide-4-1700000000123.webp", SlideKey(4, at, "webp"))
}

func TestValidateKey(t *testing.T) {
	for _, key := range []string{"", "/abs", "../up", "a/../../b", "a//b", `a\b`, "."} {
		_, err := validateKey(key)
		require.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
	}
	key, err := validateKey("slides/slide-1.png")
	require.NoError(t, err)
	require.Equal(t, "slides/slide-1.png", key)
}

func repeat(s string, n int) string {
	out := make([]byte, 0, len(s)*n)
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}
