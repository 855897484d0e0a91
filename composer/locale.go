package composer

import (
	"math"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// dateLayouts are the supported long-date formats. Month names are English
// in every layout; only ordering and punctuation vary.
var dateLayouts = []struct {
	tag    language.Tag
	layout string
}{
	{language.AmericanEnglish, "January 2, 2006"},
	{language.BritishEnglish, "2 January 2006"},
	{language.German, "2. January 2006"},
	{language.French, "2 January 2006"},
}

var dateMatcher = func() language.Matcher {
	tags := make([]language.Tag, len(dateLayouts))
	for i, d := range dateLayouts {
		tags[i] = d.tag
	}
	return language.NewMatcher(tags)
}()

// FormatDate renders t as a long date for the locale. Unsupported locales
// fall back to US English.
func FormatDate(t time.Time, tag language.Tag) string {
	_, idx, conf := dateMatcher.Match(tag)
	if conf == language.No {
		idx = 0
	}
	return t.Format(dateLayouts[idx].layout)
}

// numberFormat formats numbers with locale grouping and decimal marks.
// A Printer is not shared between goroutines, so one is built per document.
type numberFormat struct {
	p *message.Printer
}

func newNumberFormat(tag language.Tag) numberFormat {
	return numberFormat{p: message.NewPrinter(tag)}
}

// Int formats a rounded integer, e.g. "1,250,000".
func (f numberFormat) Int(v float64) string {
	return f.p.Sprintf("%d", int64(math.Round(v)))
}

// Decimal formats with one decimal place, e.g. "45.0".
func (f numberFormat) Decimal(v float64) string {
	return f.p.Sprintf("%.1f", v)
}

// Compact formats whole numbers without decimals and everything else with
// one, e.g. "50" or "33.3".
func (f numberFormat) Compact(v float64) string {
	if v == math.Trunc(v) {
		return f.Int(v)
	}
	return f.Decimal(v)
}
