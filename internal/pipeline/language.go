package pipeline

import (
	"strings"
	"unicode"
)

// Language is an answer language supported by the assistant.
type Language string

const (
	Portuguese Language = "Portuguese"
	English    Language = "English"
)

// ParseLanguage maps a caller-supplied language name or code to a supported
// language. ok is false for empty or unknown input.
func ParseLanguage(s string) (lang Language, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pt", "pt-br", "pt_br", "por", "portuguese", "português", "portugues":
		return Portuguese, true
	case "en", "en-us", "en_us", "eng", "english", "inglês", "ingles":
		return English, true
	}
	return "", false
}

// LanguageDetector guesses the language of a user message.
type LanguageDetector interface {
	Detect(text string) Language
}

// portugueseMarkers are function words that are rare in English text.
var portugueseMarkers = map[string]bool{
	"por": true, "que": true, "pessoas": true,
	"o": true, "os": true, "um": true, "uma": true, "de": true, "da": true, "dos": true,
	"não": true, "como": true, "para": true, "é": true, "são": true, "porque": true,
	"quem": true, "qual": true, "quais": true, "sobre": true, "episódio": true,
}

// KeywordDetector picks Portuguese when the message contains a Portuguese
// function word and English otherwise. It is a heuristic, not a language
// identifier.
type KeywordDetector struct{}

// Detect implements LanguageDetector.
func (KeywordDetector) Detect(text string) Language {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		if portugueseMarkers[w] {
			return Portuguese
		}
	}
	return English
}

type phrases struct {
	clarify    string
	apology    string
	references string
	noURL      string
}

var localized = map[Language]phrases{
	Portuguese: {
		clarify:    "Você poderia esclarecer sua pergunta?",
		apology:    "Desculpe, ocorreu um erro ao processar sua pergunta. Por favor, tente novamente.",
		references: "Referências",
		noURL:      "URL não disponível",
	},
	English: {
		clarify:    "Could you please clarify your question?",
		apology:    "Sorry, something went wrong while processing your question. Please try again.",
		references: "References",
		noURL:      "URL not available",
	},
}

func phrasesFor(lang Language) phrases {
	if p, ok := localized[lang]; ok {
		return p
	}
	return localized[English]
}
