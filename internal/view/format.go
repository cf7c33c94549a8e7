package view

import (
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatCount renders n with thousands separators ("12,408").
func FormatCount(n int) string {
	return printer.Sprintf("%d", n)
}

// Pluralize returns "1 article" / "3 articles" style strings.
func Pluralize(n int, singular, plural string) string {
	if n == 1 {
		return "1 " + singular
	}
	return FormatCount(n) + " " + plural
}

func formatInt(n int) string {
	return strconv.Itoa(n)
}

func formatFloat1(f float64) string {
	return strconv.FormatFloat(f, 'f', 1, 64)
}
