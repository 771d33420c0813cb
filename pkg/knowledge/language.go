package knowledge

import (
	"encoding/json"
	"strings"
)

// Language is a supported content language code.
type Language string

const (
	LangNepali  Language = "np"
	LangEnglish Language = "en"
)

// SupportedLanguages is the exact set of languages every localized text is
// keyed by.
var SupportedLanguages = []Language{LangNepali, LangEnglish}

func ParseLanguage(code string) (Language, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, l := range SupportedLanguages {
		if string(l) == code {
			return l, true
		}
	}
	return "", false
}

// LocalizedText maps a language to its text.
type LocalizedText map[Language]string

// Lookup returns the non-empty text for lang only.
func (t LocalizedText) Lookup(lang Language) (string, bool) {
	s, ok := t[lang]
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// Text returns the text for lang, falling back to the other supported
// languages in order so labels never render blank.
func (t LocalizedText) Text(lang Language) string {
	if s, ok := t.Lookup(lang); ok {
		return s
	}
	for _, l := range SupportedLanguages {
		if s, ok := t.Lookup(l); ok {
			return s
		}
	}
	return ""
}

func (t LocalizedText) IsEmpty() bool {
	for _, l := range SupportedLanguages {
		if _, ok := t.Lookup(l); ok {
			return false
		}
	}
	return true
}

// UnmarshalJSON accepts both the localized object form and a bare string,
// which older single-language documents used. A bare string is applied to
// every supported language.
func (t *LocalizedText) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		out := make(LocalizedText, len(SupportedLanguages))
		for _, l := range SupportedLanguages {
			out[l] = plain
		}
		*t = out
		return nil
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(LocalizedText, len(raw))
	for k, v := range raw {
		out[Language(k)] = v
	}
	*t = out
	return nil
}
