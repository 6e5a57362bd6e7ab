package validate

import "testing"

type sampleReq struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=6"`
	Name     string  `json:"name" validate:"required,min=2,max=255"`
	Note     *string `json:"note" validate:"omitempty,max=5"`
}

func TestStruct_Valid(t *testing.T) {
	t.Parallel()

	errs := Struct(sampleReq{Email: "a@b.com", Password: "secret1", Name: "Al"})
	if errs != nil {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestStruct_CollectsAllFailures(t *testing.T) {
	t.Parallel()

	errs := Struct(sampleReq{Email: "not-an-email", Password: "123", Name: ""})
	if len(errs) != 3 {
		t.Fatalf("expected 3 field errors, got %d: %v", len(errs), errs)
	}
	byField := map[string]string{}
	for _, fe := range errs {
		byField[fe.Field] = fe.Message
	}
	// Fields are reported under their json names, not Go names.
	if _, ok := byField["email"]; !ok {
		t.Fatalf("missing email error: %v", byField)
	}
	if byField["password"] != "password must be at least 6 characters" {
		t.Fatalf("unexpected password message: %q", byField["password"])
	}
	if byField["name"] != "name is required" {
		t.Fatalf("unexpected name message: %q", byField["name"])
	}
}

func TestStruct_NilPointerSkipped(t *testing.T) {
	t.Parallel()

	if errs := Struct(sampleReq{Email: "a@b.com", Password: "secret1", Name: "Al", Note: nil}); errs != nil {
		t.Fatalf("nil optional field must not fail: %v", errs)
	}
	long := "toolong"
	errs := Struct(sampleReq{Email: "a@b.com", Password: "secret1", Name: "Al", Note: &long})
	if len(errs) != 1 || errs[0].Field != "note" {
		t.Fatalf("expected one note error, got %v", errs)
	}
}
