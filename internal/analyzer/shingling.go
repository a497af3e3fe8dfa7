package analyzer

import (
	"hash/fnv"
	"strings"
)

// normalizeText lowercases, trims, and collapses whitespace runs so that
// formatting differences between API definitions do not change the shingles.
func normalizeText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// WordNGrams produces the word n-grams of text. Text with fewer than n words
// yields the whole normalized text as a single shingle.
func WordNGrams(text string, n int) []string {
	if n <= 0 {
		return nil
	}
	normalized := normalizeText(text)
	if normalized == "" {
		return nil
	}

	words := strings.Split(normalized, " ")
	if len(words) < n {
		return []string{normalized}
	}

	grams := make([]string, 0, len(words)-n+1)
	for i := 0; i+n <= len(words); i++ {
		grams = append(grams, strings.Join(words[i:i+n], " "))
	}
	return grams
}

// CharNGrams produces the character n-grams of text. Text shorter than n
// characters yields the whole normalized text as a single shingle.
func CharNGrams(text string, n int) []string {
	if n <= 0 {
		return nil
	}
	normalized := normalizeText(text)
	if normalized == "" {
		return nil
	}

	runes := []rune(normalized)
	if len(runes) < n {
		return []string{normalized}
	}

	grams := make([]string, 0, len(runes)-n+1)
	for i := 0; i+n <= len(runes); i++ {
		grams = append(grams, string(runes[i:i+n]))
	}
	return grams
}

// ShinglesFromFeatures builds the shingle set of a feature list: every
// feature contributes its normalized form plus its word n-grams.
func ShinglesFromFeatures(features []string, n int) map[string]struct{} {
	shingles := make(map[string]struct{})
	for _, feature := range features {
		normalized := normalizeText(feature)
		if normalized == "" {
			continue
		}
		shingles[normalized] = struct{}{}
		for _, gram := range WordNGrams(feature, n) {
			shingles[gram] = struct{}{}
		}
	}
	return shingles
}

// HashShingles maps each shingle to its signed 64-bit FNV-1a hash. The
// signed interpretation feeds the modulo arithmetic in signature generation.
func HashShingles(shingles map[string]struct{}) map[int64]struct{} {
	hashed := make(map[int64]struct{}, len(shingles))
	for s := range shingles {
		hashed[HashShingle(s)] = struct{}{}
	}
	return hashed
}

// HashShingle computes the 64-bit FNV-1a hash of a single shingle.
func HashShingle(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64())
}
