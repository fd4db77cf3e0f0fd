package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNotFoundError(t *testing.T) {
	err := NewNotFound("item", "chapter-1.xhtml")
	want := "item not found: chapter-1.xhtml"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("NotFoundError should unwrap to ErrNotFound")
	}

	// Without an ID
	err = NewNotFound("navigation", "")
	if err.Error() != "navigation not found" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestNotFoundErrorWithUnderlying(t *testing.T) {
	underlying := errors.New("disk failure")
	err := &NotFoundError{Resource: "item", ID: "x", Err: underlying}
	if !errors.Is(err, underlying) {
		t.Error("should unwrap to the underlying error when set")
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidation("publisher", "required metadata is absent")
	want := "validation failed for publisher: required metadata is absent"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("ValidationError should unwrap to ErrInvalidInput")
	}

	err = &ValidationError{Message: "bad tree"}
	if err.Error() != "validation failed: bad tree" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestIOError(t *testing.T) {
	underlying := errors.New("permission denied")
	err := NewIO("open", "/tmp/book.epub", underlying)
	want := "failed to open /tmp/book.epub: permission denied"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, underlying) {
		t.Error("IOError should unwrap to the underlying error")
	}
}

func TestParseError(t *testing.T) {
	err := NewParse("OPF", "book.opf", "missing package element")
	want := "failed to parse OPF at book.opf: missing package element"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("ParseError should unwrap to ErrInvalidInput")
	}

	err = NewParse("XHTML", "", "truncated input")
	if err.Error() != "failed to parse XHTML: truncated input" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestUnsupportedError(t *testing.T) {
	err := NewUnsupported("media type", "no known extension for application/x-mystery")
	if !errors.Is(err, ErrUnsupported) {
		t.Error("UnsupportedError should unwrap to ErrUnsupported")
	}
	want := "unsupported media type: no known extension for application/x-mystery"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) should be nil")
	}

	base := errors.New("base")
	wrapped := Wrap(base, "while exporting")
	if wrapped.Error() != "while exporting: base" {
		t.Errorf("Wrap() = %q", wrapped.Error())
	}
	if !errors.Is(wrapped, base) {
		t.Error("wrapped error should match base via errors.Is")
	}
}

func TestWrapf(t *testing.T) {
	if Wrapf(nil, "ctx %d", 1) != nil {
		t.Error("Wrapf(nil) should be nil")
	}

	base := errors.New("base")
	wrapped := Wrapf(base, "item %q", "nav.xhtml")
	want := fmt.Sprintf("item %q: base", "nav.xhtml")
	if wrapped.Error() != want {
		t.Errorf("Wrapf() = %q, want %q", wrapped.Error(), want)
	}
}

func TestIsAs(t *testing.T) {
	err := NewNotFound("item", "a")
	if !Is(err, ErrNotFound) {
		t.Error("Is should match ErrNotFound")
	}
	var nf *NotFoundError
	if !As(err, &nf) {
		t.Error("As should extract *NotFoundError")
	}
	if nf.ID != "a" {
		t.Errorf("extracted ID = %q, want %q", nf.ID, "a")
	}
}
