// Package errors provides structured error types for the xatlas-go library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes context: attribute path, offending value, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseCoerce, errors.KindOverflow).
//		Path("index", "42").
//		Value(70000).
//		Detail("index value does not fit in uint16").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Overflow(errors.PhaseCoerce, path, 70000, "uint16")
//	err := errors.NotInitialized(errors.PhaseSession, "library")
//
// All errors implement the standard error interface and support errors.Is/As.
// Two *Error values match under errors.Is when Phase and Kind are equal, which
// lets callers compare against the sentinel errors exported by other packages.
package errors
