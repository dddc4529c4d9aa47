package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/easelhouse/paintsip-backend/pkg/errors"
)

type zipBody struct {
	Name string `json:"name" validate:"required,min=2"`
	Zip  string `json:"zip" validate:"required,uszip"`
}

func postJSON(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func TestDecodeJSONBodyAcceptsValidZip(t *testing.T) {
	for _, zip := range []string{"78701", "78701-1234"} {
		var dest zipBody
		if err := DecodeJSONBody(postJSON(`{"name":"Ada","zip":"`+zip+`"}`), &dest); err != nil {
			t.Fatalf("zip %s: unexpected error %v", zip, err)
		}
	}
}

func TestDecodeJSONBodyReportsFirstFieldError(t *testing.T) {
	var dest zipBody
	err := DecodeJSONBody(postJSON(`{"name":"A","zip":"7870"}`), &dest)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if typed.Message() != "name must be at least 2 characters" {
		t.Fatalf("unexpected message %q", typed.Message())
	}
	details, ok := typed.Details().(map[string]string)
	if !ok || details["zip"] != "must be a valid ZIP code" {
		t.Fatalf("unexpected details %#v", typed.Details())
	}
}

func TestDecodeJSONBodyStrictness(t *testing.T) {
	var strict zipBody
	if err := DecodeJSONBody(postJSON(`{"name":"Ada","zip":"78701","extra":1}`), &strict); err == nil {
		t.Fatal("expected unknown field rejection")
	}
	var lenient zipBody
	if err := DecodeJSONBodyLenient(postJSON(`{"name":"Ada","zip":"78701","extra":1}`), &lenient); err != nil {
		t.Fatalf("lenient decode: %v", err)
	}
	var empty zipBody
	err := DecodeJSONBody(postJSON(``), &empty)
	if typed := pkgerrors.As(err); typed == nil || typed.Message() != "request body required" {
		t.Fatalf("expected empty body error, got %v", err)
	}
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=20&bad=x&big=500", nil)
	if v, err := ParseQueryInt(req, "limit", 50, 1, 100); err != nil || v != 20 {
		t.Fatalf("expected 20, got %d %v", v, err)
	}
	if v, err := ParseQueryInt(req, "missing", 50, 1, 100); err != nil || v != 50 {
		t.Fatalf("expected default, got %d %v", v, err)
	}
	if _, err := ParseQueryInt(req, "bad", 50, 1, 100); err == nil {
		t.Fatal("expected numeric error")
	}
	if _, err := ParseQueryInt(req, "big", 50, 1, 100); err == nil {
		t.Fatal("expected range error")
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  cs_test_123  ", 5); got != "cs_te" {
		t.Fatalf("unexpected %q", got)
	}
	// "é" is two bytes; a cut inside it backs off to the rune start
	if got := SanitizeString("café-night", 4); got != "caf" {
		t.Fatalf("unexpected %q", got)
	}
	if got := SanitizeString(" sip ", 0); got != "sip" {
		t.Fatalf("unexpected %q", got)
	}
}
