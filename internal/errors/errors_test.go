package errors

import (
	"fmt"
	"strings"
	"sync"
	"testing"
)

type recordingReporter struct {
	mu       sync.Mutex
	reported []*EnhancedError
}

func (r *recordingReporter) ReportError(ee *EnhancedError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reported = append(r.reported, ee)
}

func (r *recordingReporter) IsEnabled() bool { return true }

func TestBuildWithoutTelemetry(t *testing.T) {
	ee := New(fmt.Errorf("plain failure")).Build()

	if ee.Error() != "plain failure" {
		t.Errorf("Expected message 'plain failure', got %q", ee.Error())
	}
	if ee.GetComponent() != ComponentUnknown {
		t.Errorf("Expected component %q without telemetry, got %q", ComponentUnknown, ee.GetComponent())
	}
	if ee.Category != CategoryGeneric {
		t.Errorf("Expected category %q, got %q", CategoryGeneric, ee.Category)
	}
}

func TestBuilderKeepsExplicitValues(t *testing.T) {
	t.Parallel()

	ee := Newf("collection %s unreadable", "courses").
		Component("jsonstore").
		Category(CategoryFileIO).
		Priority("urgent").
		Context("collection", "courses").
		Build()

	if ee.GetComponent() != "jsonstore" {
		t.Errorf("Expected component jsonstore, got %q", ee.GetComponent())
	}
	if ee.Priority != PriorityMedium {
		t.Errorf("Expected unknown priority to fall back to medium, got %q", ee.Priority)
	}
	if got := ee.GetContext()["collection"]; got != "courses" {
		t.Errorf("Expected context collection=courses, got %v", got)
	}
}

func TestCategoryDetection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		msg  string
		want ErrorCategory
	}{
		{"context deadline exceeded", CategoryTimeout},
		{"record 4 not found", CategoryNotFound},
		{"dial tcp: connection refused", CategoryNetwork},
		{"invalid character in json", CategoryFileParsing},
		{"open data/courses.json: permission denied", CategoryFileIO},
		{"email is required", CategoryValidation},
		{"something odd", CategoryGeneric},
	}
	for _, tt := range tests {
		if got := detectCategory(NewStd(tt.msg)); got != tt.want {
			t.Errorf("detectCategory(%q) = %q, want %q", tt.msg, got, tt.want)
		}
	}
}

func TestIsCategoryThroughWrapping(t *testing.T) {
	t.Parallel()

	base := New(NewStd("missing")).Category(CategoryNotFound).Build()
	wrapped := fmt.Errorf("loading course: %w", base)

	if !IsNotFound(wrapped) {
		t.Error("Expected wrapped error to be recognised as not-found")
	}
	if IsCategory(wrapped, CategoryStorage) {
		t.Error("Did not expect storage category")
	}

	other := New(NewStd("another")).Category(CategoryNotFound).Build()
	if !Is(wrapped, other) {
		t.Error("Expected enhanced errors with the same category to match with Is")
	}
}

func TestTelemetryReporterReceivesErrors(t *testing.T) {
	reporter := &recordingReporter{}
	SetTelemetryReporter(reporter)
	t.Cleanup(func() { SetTelemetryReporter(nil) })

	ee := Newf("upstream failed").Category(CategoryChatProvider).Build()

	if len(reporter.reported) != 1 || reporter.reported[0] != ee {
		t.Fatalf("Expected the built error to be reported once, got %d reports", len(reporter.reported))
	}
	if ee.GetComponent() == "" {
		t.Error("Expected component to be set")
	}
}

func TestLookupComponentPrefersLongestPattern(t *testing.T) {
	t.Parallel()

	if got := lookupComponent("store/jsonstore.(*Store).Save"); got != "jsonstore" {
		t.Errorf("Expected jsonstore, got %q", got)
	}
	if got := lookupComponent("entities.(*Course).Validate"); got != "entities" {
		t.Errorf("Expected package fallback 'entities', got %q", got)
	}
}

func TestScrubMessageForPrivacy(t *testing.T) {
	t.Parallel()

	msg := "POST https://ai.example.com/v1/generate?key=secret failed for jane.doe@example.com with api_key=abc123"
	scrubbed := scrubMessageForPrivacy(msg)

	for _, leaked := range []string{"secret", "jane.doe@example.com", "abc123"} {
		if strings.Contains(scrubbed, leaked) {
			t.Errorf("Expected %q to be scrubbed from %q", leaked, scrubbed)
		}
	}
	if !strings.Contains(scrubbed, "https://ai.example.com/v1/generate?[REDACTED]") {
		t.Errorf("Expected URL query to be redacted, got %q", scrubbed)
	}
}

func TestGenerateErrorTitle(t *testing.T) {
	t.Parallel()

	ee := New(NewStd("x")).Component("chat").Category(CategoryChatProvider).Context("operation", "generate_reply").Build()
	if got := generateErrorTitle(ee); got != "Chat Chat Provider Error Generate Reply" {
		t.Errorf("Unexpected title %q", got)
	}
}
