package bundle

import (
	"errors"
	"fmt"
)

// ErrInvalidPlan is returned when planner options or inputs are out of range.
var ErrInvalidPlan = errors.New("invalid plan input")

// ConversionError means an input could not be turned into a PDF: unreadable
// source, converter crash, timeout, or corrupt converter output.
type ConversionError struct {
	Path  string
	Cause error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("conversion failed for %s: %v", e.Path, e.Cause)
}

func (e *ConversionError) Unwrap() error { return e.Cause }

// UnreadablePdfError means a PDF could not be parsed or has no pages.
type UnreadablePdfError struct {
	Path  string
	Cause error
}

func (e *UnreadablePdfError) Error() string {
	return fmt.Sprintf("unreadable pdf %s: %v", e.Path, e.Cause)
}

func (e *UnreadablePdfError) Unwrap() error { return e.Cause }

// StampError signals that the plan and the converted document disagree on
// page count. The document is never partially stamped.
type StampError struct {
	Path    string
	Planned int
	Actual  int
	Cause   error
}

func (e *StampError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("stamp %s: %v", e.Path, e.Cause)
	}
	return fmt.Sprintf("stamp %s: plan has %d pages, document has %d", e.Path, e.Planned, e.Actual)
}

func (e *StampError) Unwrap() error { return e.Cause }

// PlanningInconsistencyError means final numbering could not be trusted:
// the TOC fixed point did not converge, or the written bundle does not have
// the planned number of pages.
type PlanningInconsistencyError struct {
	Reason     string
	Iterations int
}

func (e *PlanningInconsistencyError) Error() string {
	if e.Iterations > 0 {
		return fmt.Sprintf("planning inconsistency after %d iterations: %s", e.Iterations, e.Reason)
	}
	return "planning inconsistency: " + e.Reason
}

// IsRecoverable reports whether err concerns a single document and may be
// handled by skipping it.
func IsRecoverable(err error) bool {
	var convErr *ConversionError
	var pdfErr *UnreadablePdfError
	return errors.As(err, &convErr) || errors.As(err, &pdfErr)
}

// DocumentPath extracts the offending path from a pipeline error, if any.
func DocumentPath(err error) string {
	var convErr *ConversionError
	if errors.As(err, &convErr) {
		return convErr.Path
	}
	var pdfErr *UnreadablePdfError
	if errors.As(err, &pdfErr) {
		return pdfErr.Path
	}
	var stampErr *StampError
	if errors.As(err, &stampErr) {
		return stampErr.Path
	}
	return ""
}
