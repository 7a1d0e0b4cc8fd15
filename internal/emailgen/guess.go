// Package emailgen guesses contact addresses and renders draft cold emails
// from a lead's score and issues.
package emailgen

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Candidate is one guessed address.
type Candidate struct {
	Email      string
	Pattern    string
	Confidence int
	Personal   bool
}

type pattern struct {
	tmpl       string
	confidence int
	needsLast  bool
}

var genericPatterns = []pattern{
	{"info@{domain}", 70, false},
	{"contact@{domain}", 65, false},
	{"hello@{domain}", 60, false},
	{"admin@{domain}", 50, false},
	{"sales@{domain}", 45, false},
}

var personalPatterns = []pattern{
	{"{first}@{domain}", 75, false},
	{"{first}.{last}@{domain}", 85, true},
	{"{first}{last}@{domain}", 70, true},
	{"{f}{last}@{domain}", 65, true},
	{"{first}_{last}@{domain}", 55, true},
	{"{last}.{first}@{domain}", 50, true},
}

var (
	emailRe    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	nonAlphaRe = regexp.MustCompile(`[^a-zA-Z\s]`)
)

// ValidEmail reports whether s looks like a deliverable address.
func ValidEmail(s string) bool {
	return emailRe.MatchString(s)
}

// Guess returns candidate addresses for domain, most confident first.
// Personal patterns are included when first (and for most, last) is known.
func Guess(domain, first, last string) []Candidate {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return nil
	}

	var out []Candidate
	add := func(p pattern, personal bool) {
		r := strings.NewReplacer(
			"{domain}", domain,
			"{first}", first,
			"{last}", last,
			"{f}", initial(first),
		)
		email := r.Replace(p.tmpl)
		if !ValidEmail(email) {
			return
		}
		out = append(out, Candidate{Email: email, Pattern: p.tmpl, Confidence: p.confidence, Personal: personal})
	}

	for _, p := range genericPatterns {
		add(p, false)
	}
	if first != "" {
		for _, p := range personalPatterns {
			if p.needsLast && last == "" {
				continue
			}
			add(p, true)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out
}

func initial(s string) string {
	if s == "" {
		return ""
	}
	return s[:1]
}

// trade words stripped from the end of company names before treating what
// is left as a person's name ("John Smith Plumbing" -> john smith).
var companySuffixes = []string{
	"plumbing", "electric", "electrical", "roofing", "construction",
	"services", "solutions", "consulting", "agency", "studio",
	"design", "marketing", "group", "company", "co", "llc", "inc",
	"& sons", "& associates", "& co", "and sons", "and associates",
}

// NameParts returns lowercase first and last names for address guessing.
// A contact name wins; otherwise a person's name is read out of the
// company name.
func NameParts(contact, company string) (first, last string) {
	if parts := words(contact); len(parts) > 0 {
		first = parts[0]
		if len(parts) > 1 {
			last = parts[len(parts)-1]
		}
		return first, last
	}

	name := strings.TrimSpace(company)
	for stripped := true; stripped; {
		stripped = false
		lower := strings.ToLower(name)
		for _, suffix := range companySuffixes {
			if lower == suffix || strings.HasSuffix(lower, " "+suffix) {
				name = strings.TrimSpace(name[:len(name)-len(suffix)])
				stripped = name != ""
				break
			}
		}
	}
	parts := words(name)
	switch {
	case len(parts) >= 2:
		return parts[0], parts[len(parts)-1]
	case len(parts) == 1:
		return parts[0], ""
	}
	return "", ""
}

// words returns the lowercase ASCII words of s for use in local parts.
// Accents are folded first so "José" reads as "jose".
func words(s string) []string {
	return strings.Fields(strings.ToLower(nonAlphaRe.ReplaceAllString(foldAccents(s), "")))
}

func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
