package util

import "strings"

var slugReplacer = strings.NewReplacer(
	"à", "a", "á", "a", "ä", "a", "â", "a",
	"è", "e", "é", "e", "ë", "e", "ê", "e",
	"ì", "i", "í", "i", "ï", "i", "î", "i",
	"ò", "o", "ó", "o", "ö", "o", "ô", "o",
	"ù", "u", "ú", "u", "ü", "u", "û", "u",
	"ñ", "n", "ç", "c",
	"·", "-", "/", "-", "_", "-", ",", "-", ":", "-", ";", "-",
)

// Slugify converts a bookstore name into a URL-safe slug: lowercase,
// accents folded, invalid characters dropped, whitespace and dash runs
// collapsed to a single dash.
func Slugify(value string) string {
	val := strings.ToLower(strings.TrimSpace(value))
	val = slugReplacer.Replace(val)

	var b strings.Builder
	for _, r := range val {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-':
			b.WriteRune('-')
		}
	}

	out := b.String()
	for strings.Contains(out, "--") {
		out = strings.ReplaceAll(out, "--", "-")
	}
	return out
}
