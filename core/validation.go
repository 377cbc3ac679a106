package core

import (
	"strings"
	"unicode/utf8"
)

const (
	FieldEmail    = "email"
	FieldPassword = "password"

	// MinPasswordLength counts characters, not bytes.
	MinPasswordLength = 10

	MsgPasswordTooShort = "passwords must be at least 10 characters long"
	MsgPasswordMismatch = "password and password confirmation must match"
	MsgEmailTaken       = "A user with this email already exists"
	MsgEmailRequired    = "email is required"
	// MsgInvalidLogin is shared by "no such user" and "wrong password".
	MsgInvalidLogin = "invalid email or password"
)

// FieldError is one user-correctable problem with a submitted form.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError is an ordered, immutable list of field errors.
type ValidationError struct {
	fields []FieldError
}

// With returns a copy of e extended by one field error. A nil receiver
// starts a new list.
func (e *ValidationError) With(field, message string) *ValidationError {
	next := &ValidationError{}
	if e != nil {
		next.fields = append(next.fields, e.fields...)
	}
	next.fields = append(next.fields, FieldError{Field: field, Message: message})
	return next
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.fields))
	for _, f := range e.fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Fields returns the errors in the order they were found.
func (e *ValidationError) Fields() []FieldError {
	out := make([]FieldError, len(e.fields))
	copy(out, e.fields)
	return out
}

// Messages joins every message for field, as shown next to the input.
func (e *ValidationError) Messages(field string) string {
	if e == nil {
		return ""
	}
	var msgs []string
	for _, f := range e.fields {
		if f.Field == field {
			msgs = append(msgs, f.Message)
		}
	}
	return strings.Join(msgs, ", ")
}

// SignupForm is the raw signup submission.
type SignupForm struct {
	Email                string `form:"email"`
	Password             string `form:"password"`
	PasswordConfirmation string `form:"password_confirmation"`
}

// LoginForm is the raw login submission.
type LoginForm struct {
	Email    string `form:"email"`
	Password string `form:"password"`
}

// SignupInput is a signup form that passed the local checks.
type SignupInput struct {
	Email    string
	Password string
}

// ValidateSignup runs the checks that need no storage. Email uniqueness is
// checked by AuthService and finally by the database.
func ValidateSignup(form SignupForm) (SignupInput, *ValidationError) {
	var verr *ValidationError
	email := strings.TrimSpace(form.Email)
	if utf8.RuneCountInString(form.Password) < MinPasswordLength {
		verr = verr.With(FieldPassword, MsgPasswordTooShort)
	}
	if form.Password != form.PasswordConfirmation {
		verr = verr.With(FieldPassword, MsgPasswordMismatch)
	}
	if email == "" {
		verr = verr.With(FieldEmail, MsgEmailRequired)
	}
	if verr != nil {
		return SignupInput{}, verr
	}
	return SignupInput{Email: email, Password: form.Password}, nil
}
