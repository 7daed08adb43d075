package middleware

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

type localeContextKey struct{}

// LocaleKey carries the resolved UI locale ("zh" or "en") in the request
// context.
var LocaleKey = localeContextKey{}

var (
	supportedTags = []language.Tag{
		language.SimplifiedChinese,
		language.English,
	}
	supportedCodes = []string{"zh", "en"}
	localeMatcher  = language.NewMatcher(supportedTags)
)

// Locale resolves the request locale. An explicit X-Locale header wins,
// then the best Accept-Language match, then the configured default.
func Locale(defaultLocale string) func(http.Handler) http.Handler {
	fallback := normalizeLocale(defaultLocale)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			locale := fallback
			if v := r.Header.Get("X-Locale"); v != "" {
				locale = normalizeLocale(v)
			} else if matched, ok := matchAcceptLanguage(r.Header.Get("Accept-Language")); ok {
				locale = matched
			}
			ctx := context.WithValue(r.Context(), LocaleKey, locale)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func matchAcceptLanguage(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return "", false
	}
	_, idx, conf := localeMatcher.Match(tags...)
	if conf == language.No {
		return "", false
	}
	return supportedCodes[idx], true
}

func normalizeLocale(locale string) string {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if strings.HasPrefix(locale, "zh") {
		return "zh"
	}
	return "en"
}

// LocaleFromContext returns the locale stored by Locale, defaulting to "zh"
// to match the page's primary language.
func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(LocaleKey).(string); ok {
		return v
	}
	return "zh"
}
