package common

import "testing"

func TestConstantsValues(t *testing.T) {
	if ContentTypeJSON != "application/json" {
		t.Fatalf("ContentTypeJSON = %q", ContentTypeJSON)
	}
	if HeaderAPIKey != "X-API-Key" || HeaderRequestID != "X-Request-ID" {
		t.Fatalf("header constants mismatch: %q, %q", HeaderAPIKey, HeaderRequestID)
	}
	if PathHealthz != "/healthz" || PathOCR != "/api/ocr" {
		t.Fatalf("paths mismatch: %q, %q", PathHealthz, PathOCR)
	}
	if FormFieldFile == "" || FormFieldPrompt == "" {
		t.Fatalf("form field names should be non-empty")
	}
	if DefaultOllamaBaseURL == "" || DefaultModelName == "" {
		t.Fatalf("inference defaults should be non-empty")
	}
	if MimeImagePNG != "image/png" || MimeImageJPEG != "image/jpeg" || MimeImageJPG != "image/jpg" {
		t.Fatalf("mime constants mismatch")
	}
}
