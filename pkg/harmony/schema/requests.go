package schema

import (
	"unicode/utf8"

	"github.com/tsarna/harmony/pkg/harmony"
	"go.uber.org/multierr"
)

const (
	MinPasswordLength = 8
	MinUsernameLength = 3
	MaxUsernameLength = 32
)

// ValidateLogin checks a login request before it is sent.
func ValidateLogin(req harmony.LoginRequest) error {
	var errs error
	if req.Email != "" {
		errs = multierr.Append(errs, checkEmail("email", req.Email))
	}
	if req.Email == "" && req.Username == "" {
		errs = multierr.Append(errs, Issuef("", "either email or username must be provided"))
	}
	errs = multierr.Append(errs, checkPassword(req.Password))
	if errs != nil {
		return NewValidationError("login request", errs)
	}
	return nil
}

// ValidateRegister checks a registration request before it is sent.
func ValidateRegister(req harmony.RegisterRequest) error {
	var errs error
	switch n := utf8.RuneCountInString(req.Username); {
	case n < MinUsernameLength:
		errs = multierr.Append(errs, Issuef("username", "must be at least %d characters", MinUsernameLength))
	case n > MaxUsernameLength:
		errs = multierr.Append(errs, Issuef("username", "must be at most %d characters", MaxUsernameLength))
	}
	errs = multierr.Append(errs, checkEmail("email", req.Email))
	errs = multierr.Append(errs, checkPassword(req.Password))
	if errs != nil {
		return NewValidationError("register request", errs)
	}
	return nil
}

func checkPassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return Issuef("password", "must be at least %d characters", MinPasswordLength)
	}
	return nil
}
