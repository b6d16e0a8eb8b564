package auth

import (
	"strings"

	"github.com/trackspend/expense-tracker/internal"
)

type RegisterDTO struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (dto RegisterDTO) Validate() error {
	if dto.Email == "" || !strings.Contains(dto.Email, "@") {
		return internal.NewValidationError("a valid email is required", internal.ErrCodeValidationFailed)
	}
	if dto.Name == "" {
		return internal.NewValidationError("name is required", internal.ErrCodeMissingField)
	}
	if problems := passwordProblems(dto.Password); len(problems) > 0 {
		return internal.NewValidationError(
			"password must have: "+strings.Join(problems, ", "),
			internal.ErrCodeWeakPassword)
	}
	return nil
}

type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (dto LoginDTO) Validate() error {
	if dto.Email == "" {
		return internal.NewValidationError("email is required", internal.ErrCodeMissingField)
	}
	if dto.Password == "" {
		return internal.NewValidationError("password is required", internal.ErrCodeMissingField)
	}
	return nil
}

type RefreshTokenDTO struct {
	RefreshToken string `json:"refresh_token"`
}

func (dto RefreshTokenDTO) Validate() error {
	if dto.RefreshToken == "" {
		return internal.NewValidationError("refresh token is required", internal.ErrCodeMissingField)
	}
	return nil
}

const specialChars = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`

// passwordProblems returns the unmet strength requirements: at least 8
// characters, one uppercase, one lowercase, one digit and one special
// character.
func passwordProblems(password string) []string {
	var problems []string

	if len(password) < 8 {
		problems = append(problems, "at least 8 characters")
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune(specialChars, r):
			hasSpecial = true
		}
	}

	if !hasUpper {
		problems = append(problems, "at least one uppercase letter")
	}
	if !hasLower {
		problems = append(problems, "at least one lowercase letter")
	}
	if !hasDigit {
		problems = append(problems, "at least one number")
	}
	if !hasSpecial {
		problems = append(problems, "at least one special character")
	}

	return problems
}
