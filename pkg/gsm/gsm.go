// Package gsm implements character accounting for the GSM 03.38 7-bit
// default alphabet and UCS-2, the two SMS text encodings.
package gsm

import "unicode/utf16"

const (
	basicSet     = "@£$¥èéùìòÇ\nØø\rÅåΔ_ΦΓΛΩΠΨΣΘΞÆæßÉ !\"#¤%&'()*+,-./0123456789:;<=>?¡ABCDEFGHIJKLMNOPQRSTUVWXYZÄÖÑÜ§¿abcdefghijklmnopqrstuvwxyzäöñüà"
	extensionSet = "\f^{}\\[~]|€"
)

var (
	basic     = toSet(basicSet)
	extension = toSet(extensionSet)
)

func toSet(chars string) map[rune]struct{} {
	m := make(map[rune]struct{}, len(chars))
	for _, r := range chars {
		m[r] = struct{}{}
	}
	return m
}

// Septets returns how many 7-bit units r occupies in GSM-7: 1 for the default
// table, 2 for the extension table (escape + char), 0 if r is not encodable.
func Septets(r rune) int {
	if _, ok := basic[r]; ok {
		return 1
	}
	if _, ok := extension[r]; ok {
		return 2
	}
	return 0
}

// IsGSM reports whether r can be sent with GSM-7
func IsGSM(r rune) bool {
	return Septets(r) > 0
}

// SeptetLength returns the GSM-7 length of s. ok is false when s holds a
// character outside the default and extension tables.
func SeptetLength(s string) (n int, ok bool) {
	for _, r := range s {
		w := Septets(r)
		if w == 0 {
			return 0, false
		}
		n += w
	}
	return n, true
}

// UCS2Length returns the number of 16-bit code units s occupies in UCS-2/UTF-16.
// Characters outside the basic multilingual plane take two units.
func UCS2Length(s string) int {
	n := 0
	for _, r := range s {
		n += len(utf16.Encode([]rune{r}))
	}
	return n
}

// NonGSM returns the distinct characters of s that GSM-7 cannot carry, in order of appearance
func NonGSM(s string) []rune {
	var out []rune
	seen := make(map[rune]struct{})
	for _, r := range s {
		if IsGSM(r) {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
