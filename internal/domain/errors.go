package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrGeneration        = errors.New("generation failed")
	ErrQuotaExceeded     = errors.New("quota exceeded")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrSessionNotFound   = errors.New("session not found")
)

// ValidationError lists the form fields that kept a submission from becoming an AdSpec.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "Please fill all required fields."
	}
	return "Please fill all required fields: " + strings.Join(e.Fields, ", ") + "."
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// GenerationStage names the pipeline step that produced a GenerationError.
type GenerationStage string

const (
	StageIdeas GenerationStage = "ideas"
	StageImage GenerationStage = "image"
)

// GenerationError reports unusable output from the text or image model. The
// Message is safe to show to the user; Err keeps the underlying cause.
type GenerationError struct {
	Stage   GenerationStage
	Message string
	Err     error
}

func (e *GenerationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("%s generation failed: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s generation failed", e.Stage)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func (e *GenerationError) Is(target error) bool { return target == ErrGeneration }
