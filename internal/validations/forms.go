package validations

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/arashthr/shelf/internal/errors"
	"github.com/go-playground/validator/v10"
)

// BookmarkForm is the edit form of a bookmark as posted by the browser.
type BookmarkForm struct {
	Title       string `form:"title" validate:"required,max=500"`
	URL         string `form:"url" validate:"required,http_url,max=2048"`
	Description string `form:"description" validate:"max=5000"`
	Summary     string `form:"summary" validate:"max=10000"`
	FolderID    string `form:"folderId" validate:"omitempty,max=64"`
	Tags        string `form:"tags" validate:"max=2000"`
	// Version is the value the form was rendered with, 0 when absent.
	Version int `form:"version" validate:"gte=0"`
}

// NewBookmarkForm is the create form.
type NewBookmarkForm struct {
	URL string `form:"url" validate:"required,http_url,max=2048"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// Struct validates s and reports the first failing field as a ValidationError.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validate form: %w", err)
	}
	fe := fieldErrs[0]
	return errors.Validation(fe.Field(), message(fe))
}

var labels = map[string]string{
	"title":       "Title",
	"url":         "URL",
	"description": "Description",
	"summary":     "Summary",
	"folderId":    "Folder",
	"tags":        "Tags",
	"version":     "Version",
}

func message(fe validator.FieldError) string {
	label, ok := labels[fe.Field()]
	if !ok {
		label = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "http_url":
		return label + " must be a valid http or https address"
	case "max":
		return label + " is too long"
	default:
		return label + " is invalid"
	}
}
