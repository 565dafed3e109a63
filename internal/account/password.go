package account

import (
	"unicode"

	"github.com/celerix-dev/celerix-contacts/internal/vault"
)

const minPasswordLength = 6

// CheckPasswordPolicy returns the rules password breaks, in a stable order.
// An empty result means the password is acceptable.
func CheckPasswordPolicy(password string) []string {
	var problems []string
	if len([]rune(password)) < minPasswordLength {
		problems = append(problems, "Passwords must be at least 6 characters.")
	}
	if len(password) > vault.MaxPasswordBytes {
		problems = append(problems, "Passwords must be at most 72 bytes.")
	}

	var digit, lower, upper, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case !unicode.IsLetter(r) && !unicode.IsNumber(r):
			symbol = true
		}
	}
	if !symbol {
		problems = append(problems, "Passwords must have at least one non alphanumeric character.")
	}
	if !digit {
		problems = append(problems, "Passwords must have at least one digit ('0'-'9').")
	}
	if !upper {
		problems = append(problems, "Passwords must have at least one uppercase ('A'-'Z').")
	}
	if !lower {
		problems = append(problems, "Passwords must have at least one lowercase ('a'-'z').")
	}
	return problems
}
