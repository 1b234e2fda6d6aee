package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeFeatureDisabled    ErrorCode = "COMMON_015"
	ErrCodeNotImplemented     ErrorCode = "COMMON_016"
)

// Aliases for backward compatibility
const (
	CodeInternal       = ErrCodeInternal
	CodeInvalidParam   = ErrCodeBadRequest
	CodeUnauthorized   = ErrCodeUnauthorized
	CodeForbidden      = ErrCodeForbidden
	CodeNotFound       = ErrCodeNotFound
	CodeConflict       = ErrCodeConflict
	CodeRateLimit      = ErrCodeTooManyRequests
	CodeNotImplemented = ErrCodeNotImplemented
	CodeOK             = ErrorCode("OK")
	CodeUnknown        = ErrorCode("UNKNOWN")
)

// Contract QA Module Error Codes
const (
	ErrCodeSpanScoresMismatched ErrorCode = "QA_001"
	ErrCodeSpanScoresEmpty      ErrorCode = "QA_002"
	ErrCodeEncoderMaxLength     ErrorCode = "QA_003"
	ErrCodeUnknownCategory      ErrorCode = "QA_004"
	ErrCodeContractTextEmpty    ErrorCode = "QA_005"
	ErrCodeVocabularyInvalid    ErrorCode = "QA_006"
	ErrCodeQuestionEmpty        ErrorCode = "QA_007"
)

// AI/ML Module Error Codes
const (
	ErrCodeAIModelNotAvailable    ErrorCode = "AI_001"
	ErrCodeAIInferenceFailed      ErrorCode = "AI_002"
	ErrCodeAIModelVersionMismatch ErrorCode = "AI_003"
	ErrCodeAIInputInvalid         ErrorCode = "AI_004"
	ErrCodeAIResourceExhausted    ErrorCode = "AI_005"
	ErrCodeEnhancementUnavailable ErrorCode = "AI_006"
)

// Infrastructure Error Codes
const (
	ErrCodeStorageError      ErrorCode = "STORAGE_001"
	ErrCodeObjectNotFound    ErrorCode = "STORAGE_002"
	ErrCodeDatabaseError     ErrorCode = "STORAGE_003"
	ErrCodeMessageQueueError ErrorCode = "MSG_001"
	ErrCodeMessageInvalid    ErrorCode = "MSG_002"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeFeatureDisabled:    http.StatusForbidden,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeSpanScoresMismatched: http.StatusInternalServerError,
	ErrCodeSpanScoresEmpty:      http.StatusInternalServerError,
	ErrCodeEncoderMaxLength:     http.StatusInternalServerError,
	ErrCodeUnknownCategory:      http.StatusBadRequest,
	ErrCodeContractTextEmpty:    http.StatusBadRequest,
	ErrCodeVocabularyInvalid:    http.StatusInternalServerError,
	ErrCodeQuestionEmpty:        http.StatusBadRequest,

	ErrCodeAIModelNotAvailable:    http.StatusServiceUnavailable,
	ErrCodeAIInferenceFailed:      http.StatusInternalServerError,
	ErrCodeAIModelVersionMismatch: http.StatusInternalServerError,
	ErrCodeAIInputInvalid:         http.StatusBadRequest,
	ErrCodeAIResourceExhausted:    http.StatusServiceUnavailable,
	ErrCodeEnhancementUnavailable: http.StatusServiceUnavailable,

	ErrCodeStorageError:      http.StatusInternalServerError,
	ErrCodeObjectNotFound:    http.StatusNotFound,
	ErrCodeDatabaseError:     http.StatusInternalServerError,
	ErrCodeMessageQueueError: http.StatusInternalServerError,
	ErrCodeMessageInvalid:    http.StatusBadRequest,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeUnauthorized:       "unauthorized",
	ErrCodeForbidden:          "forbidden",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeFeatureDisabled:    "feature disabled",
	ErrCodeNotImplemented:     "not implemented",

	ErrCodeSpanScoresMismatched: "span score vectors differ in length",
	ErrCodeSpanScoresEmpty:      "span score vectors are empty",
	ErrCodeEncoderMaxLength:     "encoder max length too small",
	ErrCodeUnknownCategory:      "unknown question category",
	ErrCodeContractTextEmpty:    "contract text is empty",
	ErrCodeVocabularyInvalid:    "invalid encoder vocabulary",
	ErrCodeQuestionEmpty:        "question is empty",

	ErrCodeAIModelNotAvailable:    "AI model not available",
	ErrCodeAIInferenceFailed:      "AI inference failed",
	ErrCodeAIModelVersionMismatch: "AI model version mismatch",
	ErrCodeAIInputInvalid:         "invalid input for AI model",
	ErrCodeAIResourceExhausted:    "AI calculation resource exhausted",
	ErrCodeEnhancementUnavailable: "LLM enhancement not configured",

	ErrCodeStorageError:      "object storage error",
	ErrCodeObjectNotFound:    "object not found",
	ErrCodeDatabaseError:     "database error",
	ErrCodeMessageQueueError: "message queue error",
	ErrCodeMessageInvalid:    "invalid message payload",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}

//Personal.AI order the ending
