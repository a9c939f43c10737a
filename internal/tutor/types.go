// Package tutor implements the tutoring pipeline: subject classification,
// prompt assembly, response generation with canned fallbacks, and
// normalization of the model's markdown.
package tutor

import (
	"context"

	"github.com/ashureev/tutorly/internal/domain"
)

// Image is an inline image attached to a student message.
type Image struct {
	Data     []byte
	MIMEType string
}

// GenerationRequest is the input to a single generation call.
type GenerationRequest struct {
	SystemInstruction string
	History           []domain.Turn
	NewMessage        string
	Image             *Image
	// Prompt is the fully assembled text part sent to the model.
	Prompt string
}

// FailureKind classifies why a generation produced no usable text.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureNoCredential
	FailureTimeout
	FailureNetwork
	FailureUpstream
	FailureMalformedResponse
	FailureEmptyGeneration
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureNoCredential:
		return "no_credential"
	case FailureTimeout:
		return "timeout"
	case FailureNetwork:
		return "network_error"
	case FailureUpstream:
		return "upstream_error"
	case FailureMalformedResponse:
		return "malformed_response"
	case FailureEmptyGeneration:
		return "empty_generation"
	default:
		return "unknown"
	}
}

// GenerationResult is the outcome of a generation call. Text is only set
// when Succeeded is true; Err carries diagnostic detail for logging.
type GenerationResult struct {
	Text      string
	Succeeded bool
	Failure   FailureKind
	Err       error
}

// Failed builds an unsuccessful result.
func Failed(kind FailureKind, err error) GenerationResult {
	return GenerationResult{Failure: kind, Err: err}
}

// Generator produces model text for an assembled request. Implementations
// report every failure through the result and never return errors.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) GenerationResult
}

// Source tells where a reply's text came from.
type Source string

const (
	SourceAI       Source = "ai"
	SourceFallback Source = "fallback"
)

// Reply is the tutoring pipeline's answer to one student message.
type Reply struct {
	Text    string
	Subject Subject
	Source  Source
	Failure FailureKind
}
