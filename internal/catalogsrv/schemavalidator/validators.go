package schemavalidator

import (
	"reflect"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var (
	v    *validator.Validate
	once sync.Once
)

// V returns the shared validator with the catalog's custom tags registered.
func V() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		v.RegisterValidation("datasetName", datasetNameValidator)
		v.RegisterValidation("userStatus", userStatusValidator)
		v.RegisterValidation("noSpaces", noSpacesValidator)
		v.RegisterValidation("tagList", tagListValidator)
	})
	return v
}

const (
	NameMinLength = 3
	NameMaxLength = 100
	TagMaxLength  = 64
	MaxTags       = 50
)

var (
	nameCharsetRe = regexp.MustCompile(`^[A-Za-z0-9 ._-]+$`)
	noSpacesRe    = regexp.MustCompile(`^[^\s]+$`)
)

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// NameViolation returns the first rule a new dataset family name breaks, or ""
// if the name is acceptable.
func NameViolation(name string) string {
	if strings.TrimSpace(name) == "" {
		return "dataset name cannot be empty"
	}
	n := utf8.RuneCountInString(name)
	if n < NameMinLength {
		return "dataset name must be at least 3 characters long"
	}
	if n > NameMaxLength {
		return "dataset name must be at most 100 characters long"
	}
	if !nameCharsetRe.MatchString(name) {
		return "dataset name can only contain letters, numbers, spaces, hyphens, underscores and periods"
	}
	if !isAlnum(name[0]) {
		return "dataset name must start with a letter or number"
	}
	if !isAlnum(name[len(name)-1]) {
		return "dataset name must end with a letter or number"
	}
	for i := 1; i < len(name); i++ {
		if !isAlnum(name[i]) && !isAlnum(name[i-1]) {
			return "dataset name cannot contain consecutive special characters"
		}
	}
	return ""
}

func datasetNameValidator(fl validator.FieldLevel) bool {
	return NameViolation(fl.Field().String()) == ""
}

func userStatusValidator(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "unverified", "active", "inactive":
		return true
	}
	return false
}

func noSpacesValidator(fl validator.FieldLevel) bool {
	return noSpacesRe.MatchString(fl.Field().String())
}

// tagListValidator accepts a list of non-blank tags of bounded length.
func tagListValidator(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.Slice {
		return false
	}
	if fl.Field().Len() > MaxTags {
		return false
	}
	for i := 0; i < fl.Field().Len(); i++ {
		tag := strings.TrimSpace(fl.Field().Index(i).String())
		if tag == "" || utf8.RuneCountInString(tag) > TagMaxLength {
			return false
		}
	}
	return true
}

// ValidationErrors flattens validator errors into "field: tag" messages.
func ValidationErrors(err error) []string {
	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		if err == nil {
			return nil
		}
		return []string{err.Error()}
	}
	var msgs []string
	for _, e := range ve {
		switch e.Tag() {
		case "required":
			msgs = append(msgs, e.Field()+": missing required attribute")
		case "datasetName":
			val, _ := e.Value().(string)
			msgs = append(msgs, e.Field()+": "+NameViolation(val))
		case "email":
			msgs = append(msgs, e.Field()+": invalid email address")
		case "userStatus":
			msgs = append(msgs, e.Field()+": must be one of unverified, active, inactive")
		default:
			msgs = append(msgs, e.Field()+": validation failed for "+e.Tag())
		}
	}
	return msgs
}
