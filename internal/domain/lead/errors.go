package lead

import "errors"

var (
	// ErrInvalidInput indicates a lead failed client-side validation.
	ErrInvalidInput = errors.New("invalid lead input")
	// ErrInvalidStage indicates a stage title outside the configured pipeline.
	ErrInvalidStage = errors.New("unknown pipeline stage")
	// ErrNotInStage indicates a move whose source stage no longer holds the lead.
	ErrNotInStage = errors.New("lead not in source stage")
	// ErrRemote indicates the lead API call failed. Local state is unchanged.
	ErrRemote = errors.New("lead api request failed")
)
