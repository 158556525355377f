// Package errs defines the failure taxonomy of the ingestion pipeline. Every user-visible failure
// carries a machine-readable code and a bilingual message.
package errs

import (
	"errors"
	"fmt"

	"github.com/mamadbah2/herdlog/internal/domain/models"
)

// Kind classifies a failure.
type Kind string

const (
	KindInputValidation    Kind = "input_validation"
	KindAmbiguousReference Kind = "ambiguous_reference"
	KindInventoryAbsence   Kind = "inventory_absence"
	KindTemporalPolicy     Kind = "temporal_policy"
	KindAuthorization      Kind = "authorization"
	KindUpstreamTimeout    Kind = "upstream_timeout"
)

// Retryable reports whether the caller may resubmit the same request unchanged.
func (k Kind) Retryable() bool {
	return k == KindUpstreamTimeout
}

// NeedsClarification reports whether the user can fix the failure by answering a question.
func (k Kind) NeedsClarification() bool {
	return k == KindAmbiguousReference || k == KindInventoryAbsence
}

// Error codes surfaced to clients.
const (
	CodeInvalidCandidate     = "invalid_candidate"
	CodeNoActivity           = "no_activity"
	CodeQuantityOutOfRange   = "quantity_out_of_range"
	CodeMissingField         = "missing_field"
	CodeTextTooShort         = "text_too_short"
	CodeTextTooLong          = "text_too_long"
	CodeInvalidUnit          = "invalid_unit"
	CodeFutureDate           = "future_date"
	CodeBackdateExceeded     = "backdate_exceeded"
	CodeBeforeEntryDate      = "before_entry_date"
	CodeNeedsAnimalSelection = "needs_animal_selection"
	CodeAmbiguousFeedType    = "ambiguous_feed_type"
	CodeFeedNotInInventory   = "feed_not_in_inventory"
	CodeNoEligibleAnimals    = "no_eligible_animals"
	CodeAnimalNotInFarm      = "animal_not_in_farm"
	CodeNotReviewer          = "not_reviewer"
	CodeExtractionTimeout    = "extraction_timeout"
)

// Error is a classified pipeline failure.
type Error struct {
	Kind    Kind
	Code    string
	Message models.Bilingual
	Options []string
	Err     error
}

// New builds an Error.
func New(kind Kind, code string, fr, en string) *Error {
	return &Error{Kind: kind, Code: code, Message: models.Bilingual{FR: fr, EN: en}}
}

// Newf builds an Error with formatted messages; args are shared by both languages.
func Newf(kind Kind, code string, fr, en string, args ...any) *Error {
	return New(kind, code, fmt.Sprintf(fr, args...), fmt.Sprintf(en, args...))
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Kind, e.Code, e.Message.EN, e.Err)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message.EN)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithOptions attaches the choices a clarification offers.
func (e *Error) WithOptions(options ...string) *Error {
	e.Options = append(e.Options, options...)
	return e
}

// Wrap records the underlying cause.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// IsKind reports whether err is a classified failure of the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

// Timeout wraps an upstream deadline failure.
func Timeout(what string, err error) *Error {
	return Newf(KindUpstreamTimeout, CodeExtractionTimeout,
		"Le service (%s) ne répond pas. Veuillez réessayer.",
		"The %s did not respond in time. Please retry.", what).Wrap(err)
}
