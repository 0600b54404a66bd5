package domain

import "errors"

var (
	// ErrConflict is returned when a test is opened while another one is still running.
	ErrConflict = errors.New("a test is already open")
	// ErrNotOpen is returned when a submission or close arrives with no open test.
	ErrNotOpen = errors.New("no active test")
	// ErrNotFound indicates no closed test matches the requested code.
	ErrNotFound = errors.New("test not found")
	// ErrEmptyKey rejects answer keys without questions.
	ErrEmptyKey = errors.New("answer key must contain at least one question")
	// ErrInvalidFormat indicates a submission that is not code*answers.
	ErrInvalidFormat = errors.New("submission must look like code*answers")
	// ErrAlreadyRegistered guards the immutability of profiles.
	ErrAlreadyRegistered = errors.New("participant is already registered")
	// ErrRecordNotFound is returned by record stores for a missing key.
	ErrRecordNotFound = errors.New("record not found")
	// ErrRender wraps certificate and report generation failures.
	ErrRender = errors.New("render failed")
	// ErrPersistence wraps record store write failures.
	ErrPersistence = errors.New("persistence failed")
)

var (
	// ErrInvalidCode rejects empty test codes or codes containing the submission separator.
	ErrInvalidCode = errors.New("test code must be non-empty and must not contain '*'")
	// ErrInvalidKey rejects keys containing whitespace or the submission separator.
	ErrInvalidKey = errors.New("answer key must be a contiguous string of choices")
)
