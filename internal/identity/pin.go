package identity

// PINLength is the exact number of digits required to authorise a
// monetary action. Distinct from any login password.
const PINLength = 5

// ValidPIN reports whether s is exactly PINLength digits.
func ValidPIN(s string) bool {
	if len(s) != PINLength {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
