package i18n

import "strings"

type Lang string

const (
	RU Lang = "ru"
	EN Lang = "en"
)

// FromLanguageCode maps a Telegram language_code to a supported language.
func FromLanguageCode(code string) Lang {
	code = strings.ToLower(strings.TrimSpace(code))
	if strings.HasPrefix(code, "ru") {
		return RU
	}
	return EN
}

// Parse reads a configured language name. Only an exact "ru" selects RU.
func Parse(s string) Lang {
	if strings.EqualFold(strings.TrimSpace(s), string(RU)) {
		return RU
	}
	return EN
}

// Pick returns ru for RU and en otherwise.
func Pick(lang Lang, ru, en string) string {
	if lang == RU {
		return ru
	}
	return en
}
