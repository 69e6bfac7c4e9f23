package model

import "errors"

// Attribution engine error taxonomy. Input-validation and precondition
// errors are rejected synchronously; conservation errors are fatal and must
// never result in persisted rows.
var (
	ErrNoTouchpoints      = errors.New("journey has no touchpoints")
	ErrAmbiguousOrdering  = errors.New("ambiguous touchpoint ordering for identical timestamps")
	ErrJourneyNotTerminal = errors.New("journey has not converted")
	ErrInvalidModelParams = errors.New("invalid attribution model params")
	ErrCreditConservation = errors.New("credit fractions do not sum to 1.0")
	ErrValueConservation  = errors.New("attributed values do not sum to conversion value")
)
