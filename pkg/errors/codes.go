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
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeCancelled          ErrorCode = "COMMON_015"
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

	// Domain specific aliases
	CodePatentNotFound       = ErrCodePatentNotFound
	CodeInvalidIdentifier    = ErrCodePatentNumberInvalid
	CodeUpstream             = ErrCodePatentFetchFailed
	CodeParseFailure         = ErrCodePatentParseFailed
	CodeClaimAnalysisFailed  = ErrCodeClaimAnalysisFailed
	CodeAIInputInvalid       = ErrCodeAIInputInvalid
	CodeFamilyMemberNotFound = ErrCodeFamilyMemberNotFound
)

// Patent Module Error Codes
const (
	ErrCodePatentNotFound         ErrorCode = "PAT_001"
	ErrCodePatentAlreadyExists    ErrorCode = "PAT_002"
	ErrCodePatentNumberInvalid    ErrorCode = "PAT_003"
	ErrCodePatentFetchFailed      ErrorCode = "PAT_005"
	ErrCodePatentParseFailed      ErrorCode = "PAT_006"
	ErrCodeClaimAnalysisFailed    ErrorCode = "PAT_007"
	ErrCodeFamilyMemberNotFound   ErrorCode = "PAT_009"
	ErrCodeFamilyTooSmall         ErrorCode = "PAT_010"
	ErrCodeEnrichmentStageInvalid ErrorCode = "PAT_011"
	ErrCodeImportInProgress       ErrorCode = "PAT_012"
)

// Data Source Error Codes
const (
	ErrCodeDataSourceUnavailable ErrorCode = "SRC_001"
	ErrCodeDataSourceRateLimited ErrorCode = "SRC_002"
	ErrCodeDataSourceAuthFailed  ErrorCode = "SRC_003"
	ErrCodeDataSourceParseError  ErrorCode = "SRC_004"
)

// AI / Analysis Error Codes
const (
	ErrCodeAIModelNotAvailable ErrorCode = "AI_001"
	ErrCodeAIInferenceFailed   ErrorCode = "AI_002"
	ErrCodeAIInputInvalid      ErrorCode = "AI_004"
)

// ErrorCodeHTTPStatus maps an ErrorCode to the HTTP status returned by the API.
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
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeCancelled:          499,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodePatentNotFound:         http.StatusNotFound,
	ErrCodePatentAlreadyExists:    http.StatusConflict,
	ErrCodePatentNumberInvalid:    http.StatusBadRequest,
	ErrCodePatentFetchFailed:      http.StatusBadGateway,
	ErrCodePatentParseFailed:      http.StatusBadGateway,
	ErrCodeClaimAnalysisFailed:    http.StatusBadGateway,
	ErrCodeFamilyMemberNotFound:   http.StatusNotFound,
	ErrCodeFamilyTooSmall:         http.StatusUnprocessableEntity,
	ErrCodeEnrichmentStageInvalid: http.StatusConflict,
	ErrCodeImportInProgress:       http.StatusConflict,

	ErrCodeDataSourceUnavailable: http.StatusServiceUnavailable,
	ErrCodeDataSourceRateLimited: http.StatusTooManyRequests,
	ErrCodeDataSourceAuthFailed:  http.StatusBadGateway,
	ErrCodeDataSourceParseError:  http.StatusBadGateway,

	ErrCodeAIModelNotAvailable: http.StatusServiceUnavailable,
	ErrCodeAIInferenceFailed:   http.StatusBadGateway,
	ErrCodeAIInputInvalid:      http.StatusBadRequest,
}

// ErrorCodeMessage holds the default user-facing message for each ErrorCode.
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
	ErrCodeSerialization:      "serialization error",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeCancelled:          "operation cancelled",
	ErrCodeNotImplemented:     "not implemented",

	ErrCodePatentNotFound:         "patent not found",
	ErrCodePatentAlreadyExists:    "patent already in family",
	ErrCodePatentNumberInvalid:    "invalid patent number",
	ErrCodePatentFetchFailed:      "failed to fetch patent from upstream",
	ErrCodePatentParseFailed:      "failed to parse analysis response",
	ErrCodeClaimAnalysisFailed:    "claim analysis failed",
	ErrCodeFamilyMemberNotFound:   "family member not found",
	ErrCodeFamilyTooSmall:         "not enough family members for analysis",
	ErrCodeEnrichmentStageInvalid: "invalid enrichment stage transition",
	ErrCodeImportInProgress:       "an import is already running for this family",

	ErrCodeDataSourceUnavailable: "data source unavailable",
	ErrCodeDataSourceRateLimited: "data source rate limited",
	ErrCodeDataSourceAuthFailed:  "data source authentication failed",
	ErrCodeDataSourceParseError:  "data source response could not be parsed",

	ErrCodeAIModelNotAvailable: "analysis model not available",
	ErrCodeAIInferenceFailed:   "analysis request failed",
	ErrCodeAIInputInvalid:      "invalid input for analysis",
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
