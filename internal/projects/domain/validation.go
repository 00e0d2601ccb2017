package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const MaxNotesLength = 255

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their request name, not the Go field name.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

type CreateProjectInput struct {
	Title       string `json:"title" form:"title" validate:"required"`
	Description string `json:"description" form:"description" validate:"required"`
	Notes       string `json:"notes" form:"notes" validate:"max=255"`
}

func (in *CreateProjectInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Notes = strings.TrimSpace(in.Notes)
}

func (in *CreateProjectInput) Validate() error {
	return check(in)
}

// UpdateProjectInput only carries notes; every other project field is fixed
// once the project exists. A nil Notes leaves the stored value untouched.
type UpdateProjectInput struct {
	Notes *string `json:"notes" form:"notes" validate:"omitempty,max=255"`
}

func (in *UpdateProjectInput) Normalize() {
	trimPtr(in.Notes)
}

func (in *UpdateProjectInput) Validate() error {
	return check(in)
}

type CreateTaskInput struct {
	Body string `json:"body" form:"body" validate:"required"`
}

func (in *CreateTaskInput) Normalize() {
	in.Body = strings.TrimSpace(in.Body)
}

func (in *CreateTaskInput) Validate() error {
	return check(in)
}

// UpdateTaskInput is a partial update: absent fields keep their stored value,
// a present body must not be empty.
type UpdateTaskInput struct {
	Body      *string `json:"body" form:"body" validate:"omitempty,min=1"`
	Completed *bool   `json:"completed" form:"completed"`
}

func (in *UpdateTaskInput) Normalize() {
	trimPtr(in.Body)
}

func (in *UpdateTaskInput) Validate() error {
	return check(in)
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

func check(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	ve := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		ve.Fields[fe.Field()] = message(fe)
	}
	return ve
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "min":
		return fmt.Sprintf("The %s field is required.", fe.Field())
	case "max":
		return fmt.Sprintf("The %s may not be greater than %s characters.", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("The %s field is invalid.", fe.Field())
	}
}
