// Package siren validates SIREN business identifiers, nine digits whose
// last one is a Luhn check digit.
package siren

// Valid reports whether s is a structurally valid SIREN number.
func Valid(s string) bool {
	if len(s) != 9 {
		return false
	}
	sum := 0
	for i, r := range s {
		if r < '0' || r > '9' {
			return false
		}
		digit := int(r - '0')
		// Double every second digit, counting from the right.
		if (len(s)-i)%2 == 0 {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
	}
	return sum%10 == 0
}
