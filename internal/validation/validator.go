package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

var (
	emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

	// 3-63 chars, lowercase alphanumeric plus hyphen, no leading or
	// trailing hyphen
	subdomainRe = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,61}[a-z0-9]$`)
)

// Validator validates structs using `validate` tags. Supported rules:
// required, email, subdomain, min=N, max=N, oneof=a|b|c.
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidSubdomain reports whether s is an acceptable tenant subdomain
func ValidSubdomain(s string) bool {
	return subdomainRe.MatchString(s)
}

// ValidEmail reports whether s looks like an email address
func ValidEmail(s string) bool {
	return emailRe.MatchString(s)
}

// Validate validates a struct
func (v *Validator) Validate(s interface{}) error {
	val := reflect.ValueOf(s)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return fmt.Errorf("validate expects a struct")
	}

	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		tag := fieldType.Tag.Get("validate")

		if tag == "" {
			continue
		}

		if err := v.validateField(field, tag); err != nil {
			name := jsonName(fieldType)
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	return nil
}

func jsonName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "" || tag == "-" {
		return f.Name
	}
	if idx := strings.Index(tag, ","); idx >= 0 {
		tag = tag[:idx]
	}
	if tag == "" {
		return f.Name
	}
	return tag
}

// validateField validates a single field
func (v *Validator) validateField(field reflect.Value, tag string) error {
	rules := strings.Split(tag, ",")

	// Optional fields only validate when non-zero
	optional := !strings.Contains(tag, "required")
	if optional && field.IsZero() {
		return nil
	}

	for _, rule := range rules {
		parts := strings.SplitN(rule, "=", 2)
		ruleName := parts[0]
		arg := ""
		if len(parts) == 2 {
			arg = parts[1]
		}

		switch ruleName {
		case "required":
			if field.IsZero() {
				return fmt.Errorf("field is required")
			}

		case "email":
			if field.Kind() == reflect.String && !emailRe.MatchString(field.String()) {
				return fmt.Errorf("invalid email format")
			}

		case "subdomain":
			if field.Kind() == reflect.String && !ValidSubdomain(field.String()) {
				return fmt.Errorf("must be 3-63 lowercase alphanumeric or hyphen characters, not starting or ending with a hyphen")
			}

		case "min":
			n, err := strconv.Atoi(arg)
			if err != nil {
				continue
			}
			if field.Kind() == reflect.String && len(field.String()) < n {
				return fmt.Errorf("minimum length is %d", n)
			}

		case "max":
			n, err := strconv.Atoi(arg)
			if err != nil {
				continue
			}
			if field.Kind() == reflect.String && len(field.String()) > n {
				return fmt.Errorf("maximum length is %d", n)
			}

		case "oneof":
			if field.Kind() != reflect.String {
				continue
			}
			allowed := strings.Split(arg, "|")
			ok := false
			for _, a := range allowed {
				if field.String() == a {
					ok = true
					break
				}
			}
			if !ok {
				return fmt.Errorf("must be one of %s", strings.Join(allowed, ", "))
			}
		}
	}

	return nil
}
