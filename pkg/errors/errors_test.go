package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:    http.StatusBadRequest,
		CodeConflict:      http.StatusConflict,
		CodeStateConflict: http.StatusConflict,
		CodeNotFound:      http.StatusNotFound,
		CodeRateLimit:     http.StatusTooManyRequests,
		CodeInternal:      http.StatusInternalServerError,
		CodeDependency:    http.StatusServiceUnavailable,
	}
	for code, want := range cases {
		if got := MetadataFor(code).HTTPStatus; got != want {
			t.Fatalf("MetadataFor(%s) = %d, want %d", code, got, want)
		}
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	meta := MetadataFor(Code("SOMETHING_ELSE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestAsUnwrapsNestedError(t *testing.T) {
	inner := New(CodeConflict, "duplicate rc number")
	wrapped := fmt.Errorf("create submission: %w", inner)

	typed := As(wrapped)
	if typed == nil {
		t.Fatal("expected typed error")
	}
	if typed.Code() != CodeConflict {
		t.Fatalf("expected conflict code, got %s", typed.Code())
	}
}

func TestAsReturnsNilForPlainErrors(t *testing.T) {
	if As(errors.New("boom")) != nil {
		t.Fatal("expected nil for untyped error")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("driver failure")
	err := Wrap(CodeDependency, cause, "update submission")
	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be reachable via errors.Is")
	}
}

func TestWithDetailsRoundTrip(t *testing.T) {
	details := map[string]string{"cacDocumentUrl": "cannot overwrite approved document"}
	err := New(CodeValidation, "validation failed").WithDetails(details)
	got, ok := err.Details().(map[string]string)
	if !ok {
		t.Fatalf("unexpected details type %T", err.Details())
	}
	if got["cacDocumentUrl"] == "" {
		t.Fatal("expected slot detail to survive")
	}
}
