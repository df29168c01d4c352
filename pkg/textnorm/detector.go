package textnorm

import (
	"errors"

	"github.com/abadojack/whatlanggo"
)

var errUndetected = errors.New("language could not be detected")

// WhatlangDetector detects languages offline with whatlanggo.
type WhatlangDetector struct{}

func (WhatlangDetector) Detect(text string) (string, error) {
	info := whatlanggo.Detect(text)
	if info.Lang == whatlanggo.Eng {
		return "en", nil
	}
	code := info.Lang.Iso6391()
	if code == "" {
		return "", errUndetected
	}
	return code, nil
}
