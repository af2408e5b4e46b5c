// Package langdetect identifies the language of a piece of text.
package langdetect

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"

	// Register the embedded models for every candidate language; the fork
	// selected by the go.mod replace directive only ships models that are
	// explicitly imported.
	_ "github.com/pemistahl/lingua-go/language-models/de"
	_ "github.com/pemistahl/lingua-go/language-models/en"
	_ "github.com/pemistahl/lingua-go/language-models/es"
	_ "github.com/pemistahl/lingua-go/language-models/fr"
	_ "github.com/pemistahl/lingua-go/language-models/it"
	_ "github.com/pemistahl/lingua-go/language-models/ja"
	_ "github.com/pemistahl/lingua-go/language-models/ko"
	_ "github.com/pemistahl/lingua-go/language-models/pt"
	_ "github.com/pemistahl/lingua-go/language-models/ru"
	_ "github.com/pemistahl/lingua-go/language-models/zh"
)

var (
	once     sync.Once
	detector lingua.LanguageDetector
)

// Languages considered by the detector. A narrow set keeps model load time
// and memory reasonable while covering the dictation languages we support.
var candidates = []lingua.Language{
	lingua.English,
	lingua.Chinese,
	lingua.Japanese,
	lingua.Korean,
	lingua.French,
	lingua.German,
	lingua.Spanish,
	lingua.Portuguese,
	lingua.Italian,
	lingua.Russian,
}

func load() {
	detector = lingua.NewLanguageDetectorBuilder().
		FromLanguages(candidates...).
		WithLowAccuracyMode().
		Build()
}

// Detect returns the ISO 639-1 code and English name of the detected
// language, or empty strings when the text gives no usable signal.
func Detect(text string) (code, name string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ""
	}

	once.Do(load)

	lang, ok := detector.DetectLanguageOf(text)
	if !ok {
		return "", ""
	}
	return strings.ToLower(lang.IsoCode639_1().String()), lang.String()
}
