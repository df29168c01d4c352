// Package textnorm turns raw ad copy into the canonical English string used for
// classification.
package textnorm

import (
	"context"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/sw33tLie/adscope/internal/utils"
	"github.com/sw33tLie/adscope/pkg/ads"
)

// MinTextLen is the rune count below which ad copy is replaced by a synthetic description.
const MinTextLen = 10

// Detector identifies the language of a text and returns its ISO 639-1 code.
type Detector interface {
	Detect(text string) (string, error)
}

// Translator translates text into English.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

type cacheKey struct {
	text       string
	advertiser string
}

// Normalizer normalizes ad copy and memoizes the result per (text, advertiser).
// It is safe for concurrent use.
type Normalizer struct {
	detector   Detector
	translator Translator
	log        utils.Logger

	mu    sync.Mutex
	cache map[cacheKey]string
}

// New builds a Normalizer. A nil translator disables translation, a nil
// detector assumes every text is English.
func New(detector Detector, translator Translator, log utils.Logger) *Normalizer {
	return &Normalizer{
		detector:   detector,
		translator: translator,
		log:        utils.OrNop(log),
		cache:      make(map[cacheKey]string),
	}
}

// Normalize returns the canonical form of text. It never fails: detection and
// translation errors degrade to the raw text with the advertiser suffix.
func (n *Normalizer) Normalize(ctx context.Context, text, advertiser string) string {
	key := cacheKey{text: text, advertiser: advertiser}

	n.mu.Lock()
	if v, ok := n.cache[key]; ok {
		n.mu.Unlock()
		return v
	}
	n.mu.Unlock()

	result := n.normalize(ctx, text, advertiser)

	n.mu.Lock()
	defer n.mu.Unlock()
	// First writer wins.
	if v, ok := n.cache[key]; ok {
		return v
	}
	n.cache[key] = result
	return result
}

// CacheSize returns the number of memoized entries.
func (n *Normalizer) CacheSize() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.cache)
}

func (n *Normalizer) normalize(ctx context.Context, text, advertiser string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || trimmed == ads.PlaceholderText || utf8.RuneCountInString(trimmed) < MinTextLen {
		return synthetic(advertiser)
	}

	if n.detector == nil {
		return withAdvertiser(trimmed, advertiser)
	}

	lang, err := n.detector.Detect(trimmed)
	if err != nil {
		n.log.Debugf("[textnorm] language detection failed for %q: %v", utils.Ellipsize(trimmed, 50), err)
		return withAdvertiser(trimmed, advertiser)
	}
	if lang == "en" || n.translator == nil {
		return withAdvertiser(trimmed, advertiser)
	}

	translated, err := n.translator.Translate(ctx, trimmed)
	if err != nil {
		n.log.Debugf("[textnorm] translation error for %q: %v", utils.Ellipsize(trimmed, 50), err)
		return withAdvertiser(trimmed, advertiser)
	}
	translated = strings.TrimSpace(translated)
	if translated == "" {
		return withAdvertiser(trimmed, advertiser)
	}
	return withAdvertiser(translated, advertiser)
}

func synthetic(advertiser string) string {
	if ads.IsUnknownAdvertiser(advertiser) {
		return "Generic business consulting ad"
	}
	return "Business consulting ad by " + strings.TrimSpace(advertiser)
}

func withAdvertiser(text, advertiser string) string {
	if ads.IsUnknownAdvertiser(advertiser) {
		return text
	}
	return text + " by " + strings.TrimSpace(advertiser)
}
