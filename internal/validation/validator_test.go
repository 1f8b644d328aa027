package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidSubdomain(t *testing.T) {
	valid := []string{"acme", "acme-corp", "a1b", "my-team-42", "abc"}
	for _, s := range valid {
		assert.True(t, ValidSubdomain(s), "%q should be valid", s)
	}

	invalid := []string{
		"",
		"ab",             // too short
		"-acme",          // leading hyphen
		"acme-",          // trailing hyphen
		"Acme",           // uppercase
		"acme corp",      // space
		"acme.corp",      // dot
		"acme_corp",      // underscore
		string(make([]byte, 70)),
	}
	for _, s := range invalid {
		assert.False(t, ValidSubdomain(s), "%q should be invalid", s)
	}
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("user@example.com"))
	assert.True(t, ValidEmail("a.b+c@sub.example.org"))

	assert.False(t, ValidEmail("not-an-email"))
	assert.False(t, ValidEmail("user@"))
	assert.False(t, ValidEmail("@example.com"))
	assert.False(t, ValidEmail("user@example"))
}

func TestValidateStruct(t *testing.T) {
	v := NewValidator()

	type form struct {
		Name      string `json:"name" validate:"required,min=2,max=10"`
		Email     string `json:"email" validate:"required,email"`
		Subdomain string `json:"subdomain" validate:"subdomain"`
		Role      string `json:"role" validate:"oneof=tenant_admin|user"`
	}

	ok := form{Name: "Acme", Email: "a@b.co", Subdomain: "acme", Role: "user"}
	assert.NoError(t, v.Validate(ok))

	// Optional fields are skipped when zero
	assert.NoError(t, v.Validate(form{Name: "Acme", Email: "a@b.co"}))

	tests := []struct {
		name string
		f    form
	}{
		{"missing name", form{Email: "a@b.co"}},
		{"name too short", form{Name: "A", Email: "a@b.co"}},
		{"name too long", form{Name: "this name is far too long", Email: "a@b.co"}},
		{"missing email", form{Name: "Acme"}},
		{"bad email", form{Name: "Acme", Email: "nope"}},
		{"bad subdomain", form{Name: "Acme", Email: "a@b.co", Subdomain: "-x-"}},
		{"bad role", form{Name: "Acme", Email: "a@b.co", Role: "owner"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, v.Validate(tt.f))
		})
	}

	// Error messages carry the json field name
	err := v.Validate(form{Email: "a@b.co"})
	assert.Contains(t, err.Error(), "name")
}

func TestValidateRequiresStruct(t *testing.T) {
	v := NewValidator()
	assert.Error(t, v.Validate("not a struct"))
}
