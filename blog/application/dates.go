package application

import (
	"time"

	"github.com/goodsign/monday"
	"golang.org/x/text/language"
)

// DefaultLocale is the locale posts are formatted for.
const DefaultLocale = "pt-BR"

const dateLayout = "02 Jan 2006"

var (
	supportedLocales = []language.Tag{
		language.BrazilianPortuguese,
		language.English,
	}
	localeMatcher = language.NewMatcher(supportedLocales)

	// mondayLocales is indexed like supportedLocales.
	mondayLocales = []monday.Locale{
		monday.LocalePtBR,
		monday.LocaleEnUS,
	}
)

// DateFormatter renders publication dates as "dd MMM yyyy".
type DateFormatter struct {
	locale monday.Locale
	loc    *time.Location
}

// NewDateFormatter picks the closest supported locale to locale, falling back
// to Brazilian Portuguese. Dates are shown in loc, or UTC when loc is nil.
func NewDateFormatter(locale string, loc *time.Location) *DateFormatter {
	_, idx := language.MatchStrings(localeMatcher, locale)
	if loc == nil {
		loc = time.UTC
	}
	return &DateFormatter{
		locale: mondayLocales[idx],
		loc:    loc,
	}
}

// Format returns "" for unpublished documents.
func (f *DateFormatter) Format(t *time.Time) string {
	if t == nil {
		return ""
	}
	return monday.Format(t.In(f.loc), dateLayout, f.locale)
}
