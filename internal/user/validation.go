package user

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Candidate carries the form fields of a create or update. Password is
// plaintext, or on update possibly the stored digest sent back unchanged.
type Candidate struct {
	Username string `validate:"required,max=32"`
	Password string `validate:"maxbytes=72"`
	Name     string `validate:"max=64"`
	Email    string `validate:"omitempty,email,max=128"`
	Age      int    `validate:"gte=0,lte=150"`
}

type ValidationMode int

const (
	OnCreate ValidationMode = iota
	OnUpdate
)

const DuplicateUsernameMessage = "A user with this username already exists"

type FieldError struct {
	Field   string
	Message string
}

type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, fe := range v {
		msgs = append(msgs, fe.Field+": "+fe.Message)
	}
	return strings.Join(msgs, "; ")
}

// Get returns the first message for field, or "".
func (v ValidationErrors) Get(field string) string {
	for _, fe := range v {
		if fe.Field == field {
			return fe.Message
		}
	}
	return ""
}

func (v ValidationErrors) Has(field string) bool {
	return v.Get(field) != ""
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// bcrypt limits input by bytes, and max counts runes.
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(fl.Field().String()) <= limit
	})
	return v
}

// Validate checks c before it reaches CreateUser or UpdateUser. id is the user
// being edited and is ignored on create. The uniqueness check here is advisory:
// the service and the unique index enforce it again at write time.
func (s *Service) Validate(ctx context.Context, c Candidate, id uint, mode ValidationMode) ValidationErrors {
	var out ValidationErrors
	if err := validate.Struct(c); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			for _, fe := range ve {
				out = append(out, FieldError{Field: strings.ToLower(fe.Field()), Message: fieldMessage(fe)})
			}
		} else {
			out = append(out, FieldError{Field: "form", Message: err.Error()})
		}
	}
	if mode == OnCreate && strings.TrimSpace(c.Password) == "" {
		out = append(out, FieldError{Field: "password", Message: "password is required"})
	}
	if c.Username == "" || out.Has("username") {
		return out
	}

	existing, err := NewStore(s.db).FindByUsername(ctx, c.Username)
	switch {
	case err == nil:
		if mode == OnCreate || existing.ID != id {
			out = append(out, FieldError{Field: "username", Message: DuplicateUsernameMessage})
		}
	case errors.Is(err, ErrNotFound):
	default:
		s.log.Warn().Err(err).Str("username", c.Username).Msg("uniqueness check failed")
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "max":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "maxbytes":
		return fmt.Sprintf("%s must be at most %s bytes", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
