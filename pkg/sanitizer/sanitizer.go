package sanitizer

import (
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const DefaultPhoneRegion = "CH"

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var (
	reNonTag      = regexp.MustCompile(`[^0-9\p{L}]+`)
	reMultiHyphen = regexp.MustCompile(`-+`)
	reWhitespace  = regexp.MustCompile(`\s+`)
)

func trimAndLower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func collapseHyphens(s string) string {
	s = reMultiHyphen.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Tag normalizes a style, level or language tag.
func Tag(input string) string {
	p := Pipeline{
		trimAndLower,
		func(s string) string { return reNonTag.ReplaceAllString(s, "-") },
		collapseHyphens,
	}
	return p.Apply(input)
}

// ID trims surrounding whitespace only; ids are opaque.
func ID(input string) string {
	return strings.TrimSpace(input)
}

func Text(input string) string {
	return strings.TrimSpace(reWhitespace.ReplaceAllString(input, " "))
}

func Slice(values []string, strategy Strategy) []string {
	seen := make(map[string]struct{})
	out := []string{}

	for _, v := range values {
		s := strategy(v)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	return out
}

func Tags(values []string) []string {
	return Slice(values, Tag)
}

// Phone returns the E.164 form of phone or "" when it is not a valid number.
// Numbers without a country prefix are read as Swiss.
func Phone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}

	parsed, err := phonenumbers.Parse(phone, DefaultPhoneRegion)
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return ""
	}
	return phonenumbers.Format(parsed, phonenumbers.E164)
}
