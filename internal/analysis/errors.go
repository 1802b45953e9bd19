package analysis

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure by the stage that produced it.
type Kind string

const (
	KindUploadFailed              Kind = "UploadFailed"
	KindExtractionFailed          Kind = "ExtractionFailed"
	KindAnalysisTransportFailed   Kind = "AnalysisTransportFailed"
	KindAnalysisMalformedResponse Kind = "AnalysisMalformedResponse"
)

// Reason enumerates why a response body could not be decoded.
type Reason string

const (
	ReasonEmptyBody       Reason = "empty_body"
	ReasonInvalidJSON     Reason = "invalid_json"
	ReasonMissingDecision Reason = "missing_decision"
	ReasonInvalidDecision Reason = "invalid_decision"
	ReasonMissingScore    Reason = "missing_score"
	ReasonInvalidScore    Reason = "invalid_score"
	ReasonInvalidField    Reason = "invalid_field"
)

// Sentinels for errors.Is checks against an *Error kind.
var (
	ErrUploadFailed              = errors.New(string(KindUploadFailed))
	ErrExtractionFailed          = errors.New(string(KindExtractionFailed))
	ErrAnalysisTransportFailed   = errors.New(string(KindAnalysisTransportFailed))
	ErrAnalysisMalformedResponse = errors.New(string(KindAnalysisMalformedResponse))
)

// Error is a pipeline failure. Message is the human readable text surfaced to
// the user as-is.
type Error struct {
	Kind    Kind
	Message string
	// Reason is set for malformed responses only.
	Reason Reason
	// Raw keeps the undecodable payload for diagnostics.
	Raw string
	Err error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrUploadFailed:
		return e.Kind == KindUploadFailed
	case ErrExtractionFailed:
		return e.Kind == KindExtractionFailed
	case ErrAnalysisTransportFailed:
		return e.Kind == KindAnalysisTransportFailed
	case ErrAnalysisMalformedResponse:
		return e.Kind == KindAnalysisMalformedResponse
	default:
		return false
	}
}

func UploadFailed(message string, err error) *Error {
	return &Error{Kind: KindUploadFailed, Message: message, Err: err}
}

func ExtractionFailed(message string, err error) *Error {
	return &Error{Kind: KindExtractionFailed, Message: message, Err: err}
}

func AnalysisTransportFailed(message string, err error) *Error {
	return &Error{Kind: KindAnalysisTransportFailed, Message: message, Err: err}
}

// Malformed reports an analysis response that could not be decoded.
func Malformed(reason Reason, raw string) *Error {
	return malformed(reason, raw, nil)
}

func malformed(reason Reason, raw string, err error) *Error {
	message := fmt.Sprintf("Invalid analysis response: %s", reason)
	if err != nil {
		message = fmt.Sprintf("%s: %v", message, err)
	}

	return &Error{
		Kind:    KindAnalysisMalformedResponse,
		Message: message,
		Reason:  reason,
		Raw:     raw,
		Err:     err,
	}
}

// AsError returns the *Error in err's chain, if any.
func AsError(err error) (*Error, bool) {
	var pipelineErr *Error
	if errors.As(err, &pipelineErr) {
		return pipelineErr, true
	}
	return nil, false
}
