package auth

import (
	"errors"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

var (
	usernameExpr = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	phoneExpr    = regexp.MustCompile(`^[0-9+\-() ]+$`)
)

func passwordRules(field *string) *validation.FieldRules {
	return validation.Field(field,
		validation.Required.Error("Password is required"),
		validation.Length(6, 100).Error("Password must be between 6 and 100 characters"),
		validation.By(maxPasswordBytes),
	)
}

// maxPasswordBytes rejects what bcrypt refuses to hash
func maxPasswordBytes(value interface{}) error {
	s, _ := value.(string)
	if len(s) > MaxPasswordBytes {
		return errors.New("Password must not exceed 72 bytes")
	}
	return nil
}

func tokenRules(field *string) *validation.FieldRules {
	return validation.Field(field, validation.Required.Error("Token is required"))
}

func emailRules(field *string) *validation.FieldRules {
	return validation.Field(field,
		validation.Required.Error("Email is required"),
		is.Email.Error("Invalid email address"),
	)
}

// Validate checks the registration payload
func (m RegisterUserMessage) Validate() error {
	return asValidationError(validation.ValidateStruct(&m,
		validation.Field(&m.Username,
			validation.Required.Error("Username is required"),
			validation.Length(3, 50).Error("Username must be between 3 and 50 characters"),
			validation.Match(usernameExpr).Error("Username can only contain letters, numbers, and underscores"),
		),
		emailRules(&m.Email),
		passwordRules(&m.Password),
		validation.Field(&m.Phone,
			validation.Required.Error("Phone number is required"),
			validation.Length(10, 15).Error("Phone number must be between 10 and 15 characters"),
			validation.Match(phoneExpr).Error("Invalid phone number format"),
		),
	))
}

// Validate checks the login payload. Only presence is checked so the
// failure for a malformed username is the same as for an unknown one.
func (m LoginUserMessage) Validate() error {
	return asValidationError(validation.ValidateStruct(&m,
		validation.Field(&m.Username, validation.Required.Error("Username is required")),
		validation.Field(&m.Password, validation.Required.Error("Password is required")),
	))
}

// Validate checks the forgot password payload
func (m InitializePasswordResetMessage) Validate() error {
	return asValidationError(validation.ValidateStruct(&m, emailRules(&m.Email)))
}

// Validate checks the reset password payload
func (m FinalizePasswordResetMessage) Validate() error {
	return asValidationError(validation.ValidateStruct(&m,
		tokenRules(&m.Token),
		passwordRules(&m.NewPassword),
	))
}

// Validate checks the resend verification payload
func (m AccountVerificationMessage) Validate() error {
	return asValidationError(validation.ValidateStruct(&m, emailRules(&m.Email)))
}

// Validate checks the verify email payload
func (m VerifyEmailMessage) Validate() error {
	return asValidationError(validation.ValidateStruct(&m, tokenRules(&m.Token)))
}

// asValidationError turns ozzo field errors into a validation error with
// per field messages.
func asValidationError(err error) error {
	if err == nil {
		return nil
	}

	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		fields := make(map[string]string, len(fieldErrs))
		for field, fieldErr := range fieldErrs {
			if fieldErr != nil {
				fields[field] = fieldErr.Error()
			}
		}
		return NewValidationError(fields)
	}

	return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to validate payload")
}
