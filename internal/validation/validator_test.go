package validation

import "testing"

type sample struct {
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"omitempty,phone"`
	Start string `json:"startTime" validate:"required,rfc3339"`
	Slug  string `json:"slug" validate:"omitempty,slug"`
}

func TestValidatorUsesJSONNames(t *testing.T) {
	v := New()
	err := v.Struct(sample{Email: "nope", Phone: "abc", Start: "2025-06-02 09:00", Slug: "Bad Slug"})
	errs := v.ValidationErrors(err)
	if len(errs) != 4 {
		t.Fatalf("expected 4 validation errors, got %d (%v)", len(errs), err)
	}
	fields := map[string]string{}
	for _, e := range errs {
		fields[e.Field()] = e.Tag()
	}
	want := map[string]string{"email": "email", "phone": "phone", "startTime": "rfc3339", "slug": "slug"}
	for field, tag := range want {
		if fields[field] != tag {
			t.Fatalf("expected %s to fail %s, got %q", field, tag, fields[field])
		}
	}
}

func TestValidatorAcceptsValid(t *testing.T) {
	v := New()
	err := v.Struct(sample{Email: "ana@example.com", Phone: "+33 6 12 34 56 78", Start: "2025-06-02T09:00:00Z", Slug: "site-vitrine"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
