package account

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// SignUpForm is the submitted sign-up form.
type SignUpForm struct {
	FirstName       string `form:"firstName" validate:"min=2,max=100"`
	LastName        string `form:"lastName" validate:"min=2,max=100"`
	Email           string `form:"email" validate:"required,email,max=254"`
	Password        string `form:"password" validate:"min=8,max=72"`
	ConfirmPassword string `form:"confirmPassword" validate:"eqfield=Password"`
	UserType        string `form:"userType" validate:"oneof=athlete staff"`
}

// FieldErrors maps a form field name to its first validation message.
type FieldErrors map[string]string

// Error implements the error interface.
func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for field, msg := range fe {
		parts = append(parts, field+": "+msg)
	}
	return "invalid sign-up form: " + strings.Join(parts, "; ")
}

// messages holds the user-facing text per struct field and failed tag.
var messages = map[string]map[string]string{
	"FirstName":       {"min": "First name must be at least 2 characters", "max": "First name is too long"},
	"LastName":        {"min": "Last name must be at least 2 characters", "max": "Last name is too long"},
	"Email":           {"required": "Invalid email address", "email": "Invalid email address", "max": "Invalid email address"},
	"Password":        {"min": "Password must be at least 8 characters", "max": "Password must be at most 72 characters"},
	"ConfirmPassword": {"eqfield": "Passwords don't match"},
	"UserType":        {"oneof": "Please select a user type"},
}

// fieldNames maps struct fields to their form names.
var fieldNames = map[string]string{
	"FirstName":       "firstName",
	"LastName":        "lastName",
	"Email":           "email",
	"Password":        "password",
	"ConfirmPassword": "confirmPassword",
	"UserType":        "userType",
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Normalize trims whitespace, lowercases the email and defaults the user type to athlete.
// POST: Password fields are left untouched
func (f *SignUpForm) Normalize() {
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
	if strings.TrimSpace(f.UserType) == "" {
		f.UserType = TypeAthlete
	}
}

// Validate checks every field and reports one message per failing field.
// PRE: Normalize has been called
// POST: Returns nil or FieldErrors keyed by form field name
func (f SignUpForm) Validate() error {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := FieldErrors{}
	for _, fe := range verrs {
		name := fieldNames[fe.StructField()]
		if _, seen := out[name]; seen {
			continue
		}
		msg, ok := messages[fe.StructField()][fe.Tag()]
		if !ok {
			msg = "Invalid value"
		}
		out[name] = msg
	}
	return out
}
