package i18n

import "testing"

func TestGetCatalogResolvesLocale(t *testing.T) {
	tests := []struct {
		locale string
		want   string
	}{
		{"en-US", "en-US"},
		{"", "en-US"},
		{"missing-locale", "en-US"},
		{"de-AT", "de-DE"},
	}
	for _, tt := range tests {
		if got := GetCatalog(tt.locale).Locale(); got != tt.want {
			t.Fatalf("GetCatalog(%q).Locale() = %q, want %q", tt.locale, got, tt.want)
		}
	}
	if GetCatalog("fr-FR") != GetCatalog("en-US") {
		t.Fatal("expected unmatched locales to share the en-US catalog")
	}
}

func TestFormatBattleErrors(t *testing.T) {
	tests := []struct {
		locale string
		code   Code
		want   string
	}{
		{"en-US", "CASUALTY_INVALID", "Wrong number of casualties selected"},
		{"en-US", "CASUALTY_NOT_ENOUGH_UNITS", "Cannot remove enough units of those types"},
		{"en-US", "REMOTE_TIMEOUT", "Timed out waiting for Germans"},
		{"de-DE", "CASUALTY_INVALID", "Falsche Anzahl an Verlusten ausgewählt"},
		{"de-DE", "RETREAT_INVALID", "Ungültiges Rückzugsziel: Egypt"},
		{"de-DE", "BATTLE_OVER", "The battle in Egypt is already over"},
	}
	metadata := map[string]string{"Territory": "Egypt", "Player": "Germans"}
	for _, tt := range tests {
		if got := GetCatalog(tt.locale).Format(tt.code, metadata); got != tt.want {
			t.Fatalf("Format(%s, %s) = %q, want %q", tt.locale, tt.code, got, tt.want)
		}
	}
}

func TestFormatFallbacks(t *testing.T) {
	cat := NewCatalog("test", map[Code]string{
		"code":   "hello {{.Name}}",
		"broken": "hello {{.Name",
	})
	if got := cat.Format("unknown", nil); got != "unknown" {
		t.Fatalf("unknown code = %q", got)
	}
	if got := cat.Format("code", nil); got != "hello " {
		t.Fatalf("Format without metadata = %q, want %q", got, "hello ")
	}
	if got := cat.Format("broken", map[string]string{"Name": "x"}); got != "hello {{.Name" {
		t.Fatalf("unparsable template = %q", got)
	}
}
