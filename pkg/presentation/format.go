package presentation

import (
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	pkgerrors "github.com/pkg/errors"
)

const (
	// DefaultLocale renders plain ASCII digits.
	DefaultLocale = "en"
	// DefaultPercentSeparator sits between the number and the percent sign.
	DefaultPercentSeparator = " "
	// ThinSpace is the separator GNOME Shell uses in its own labels.
	ThinSpace = "\u2009"
)

// Formatter renders the "H:MM" and "N %" label templates for one locale.
// It is safe for concurrent use.
type Formatter struct {
	tag       language.Tag
	printer   *message.Printer
	separator string
}

// NewFormatter parses a BCP 47 locale such as "en" or "de-CH".
func NewFormatter(locale, separator string) (*Formatter, error) {
	if locale == "" {
		locale = DefaultLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "invalid locale %q", locale)
	}
	return &Formatter{
		tag:       tag,
		printer:   message.NewPrinter(tag),
		separator: separator,
	}, nil
}

// DefaultFormatter formats with DefaultLocale and DefaultPercentSeparator.
func DefaultFormatter() *Formatter {
	return &Formatter{
		tag:       language.English,
		printer:   message.NewPrinter(language.English),
		separator: DefaultPercentSeparator,
	}
}

// Locale returns the canonical locale tag.
func (f *Formatter) Locale() string {
	return f.tag.String()
}

// Separator returns the percent separator.
func (f *Formatter) Separator() string {
	return f.separator
}

// Duration renders seconds as hours and zero-padded minutes. Hours are not
// wrapped into days and never digit-grouped.
func (f *Formatter) Duration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := seconds % 3600 / 60
	return f.printer.Sprintf("%s:%02d", strconv.FormatInt(hours, 10), minutes)
}

// Percent renders the integer part of p followed by the separator and a
// percent sign.
func (f *Formatter) Percent(p float64) string {
	return f.printer.Sprintf("%d%s%%", int64(p), f.separator)
}
