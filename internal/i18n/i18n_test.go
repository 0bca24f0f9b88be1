package i18n

import "testing"

func TestFromLanguageCode(t *testing.T) {
	tests := map[string]Lang{
		"ru":    RU,
		"ru-RU": RU,
		" RU ":  RU,
		"en":    EN,
		"uk":    EN,
		"":      EN,
	}
	for code, want := range tests {
		if got := FromLanguageCode(code); got != want {
			t.Fatalf("FromLanguageCode(%q) = %s, want %s", code, got, want)
		}
	}
}

func TestParseAndPick(t *testing.T) {
	for in, want := range map[string]Lang{"RU": RU, " ru ": RU, "de": EN, "russian": EN, "": EN} {
		if got := Parse(in); got != want {
			t.Fatalf("Parse(%q) = %s, want %s", in, got, want)
		}
	}
	if Pick(RU, "да", "yes") != "да" || Pick(EN, "да", "yes") != "yes" {
		t.Fatalf("unexpected pick")
	}
}
