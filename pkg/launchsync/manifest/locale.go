package manifest

import (
	"fmt"
	"strings"
)

// Locale is a game locale code such as "en_US".
type Locale string

// Locales known to the game client.
const (
	LocaleZhCN Locale = "zh_CN"
	LocaleDeDE Locale = "de_DE"
	LocaleFrFR Locale = "fr_FR"
	LocaleEnGB Locale = "en_GB"
	LocaleJaJP Locale = "ja_JP"
	LocaleKoKR Locale = "ko_KR"
	LocaleZhTW Locale = "zh_TW"
	LocaleEnUS Locale = "en_US"
	LocaleEsES Locale = "es_ES"
	LocaleItIT Locale = "it_IT"
	LocalePtPT Locale = "pt_PT"
	LocaleRuRU Locale = "ru_RU"
	LocaleSvSE Locale = "sv_SE"
	LocalePtBR Locale = "pt_BR"
	LocaleEsMX Locale = "es_MX"
	LocaleNlNL Locale = "nl_NL"
	LocalePlPL Locale = "pl_PL"
	LocaleFiFL Locale = "fi_FL"
	LocaleDaDK Locale = "da_DK"
	LocaleNnNO Locale = "nn_NO"
)

var knownLocales = []Locale{
	LocaleZhCN, LocaleDeDE, LocaleFrFR, LocaleEnGB, LocaleJaJP, LocaleKoKR, LocaleZhTW,
	LocaleEnUS, LocaleEsES, LocaleItIT, LocalePtPT, LocaleRuRU, LocaleSvSE, LocalePtBR,
	LocaleEsMX, LocaleNlNL, LocalePlPL, LocaleFiFL, LocaleDaDK, LocaleNnNO,
}

// ParseLocale matches s case-insensitively against the known locale codes.
func ParseLocale(s string) (Locale, error) {
	s = strings.TrimSpace(s)
	for _, l := range knownLocales {
		if strings.EqualFold(string(l), s) {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown locale %q", s)
}

// ParseLocales parses a comma-separated locale list. Duplicates are dropped
// and declared order is kept. An empty list yields no locales.
func ParseLocales(s string) ([]Locale, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	var out []Locale
	seen := make(map[Locale]bool)
	for _, part := range strings.Split(s, ",") {
		l, err := ParseLocale(part)
		if err != nil {
			return nil, err
		}
		if seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out, nil
}

// FormatLocales joins locales into the comma-separated form used by documents.
func FormatLocales(locales []Locale) string {
	parts := make([]string, len(locales))
	for i, l := range locales {
		parts[i] = string(l)
	}
	return strings.Join(parts, ",")
}
