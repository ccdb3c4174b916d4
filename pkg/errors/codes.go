package errors

import (
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
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeStorageError       ErrorCode = "COMMON_017"
)

// Configuration Error Codes
const (
	ErrCodeInvalidConfig       ErrorCode = "CFG_001"
	ErrCodeMissingCollaborator ErrorCode = "CFG_002"
)

// Input Data Error Codes
const (
	ErrCodeDataFile           ErrorCode = "DAT_001"
	ErrCodeInvalidMeasurement ErrorCode = "DAT_002"
	ErrCodeComparisonNotFound ErrorCode = "DAT_003"
)

// Analysis Error Codes
const (
	ErrCodeMathDomain          ErrorCode = "RCR_001"
	ErrCodeComputation         ErrorCode = "RCR_002"
	ErrCodeScoringPrecondition ErrorCode = "RCR_003"
	ErrCodeNetworkNotFound     ErrorCode = "RCR_004"
)

// Aliases
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("UNKNOWN")
)

// Process exit codes reported by the CLI.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitConfig  = 2
	ExitData    = 3
)

// ErrorCodeExitStatus maps ErrorCodes to process exit statuses.
var ErrorCodeExitStatus = map[ErrorCode]int{
	ErrCodeBadRequest:          ExitConfig,
	ErrCodeValidation:          ExitConfig,
	ErrCodeInvalidConfig:       ExitConfig,
	ErrCodeMissingCollaborator: ExitConfig,

	ErrCodeDataFile:           ExitData,
	ErrCodeInvalidMeasurement: ExitData,
	ErrCodeComparisonNotFound: ExitConfig,
	ErrCodeNetworkNotFound:    ExitData,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "operation timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeStorageError:       "object storage error",

	ErrCodeInvalidConfig:       "invalid configuration",
	ErrCodeMissingCollaborator: "required collaborator is missing",

	ErrCodeDataFile:           "malformed data file",
	ErrCodeInvalidMeasurement: "invalid measurement",
	ErrCodeComparisonNotFound: "comparison not found",

	ErrCodeMathDomain:          "numerical domain error",
	ErrCodeComputation:         "numerical computation failed",
	ErrCodeScoringPrecondition: "scoring precondition violated",
	ErrCodeNetworkNotFound:     "causal network not found",
}

// ExitStatusForCode returns the process exit status for an ErrorCode.
func ExitStatusForCode(code ErrorCode) int {
	if code == CodeOK {
		return ExitOK
	}
	if status, ok := ErrorCodeExitStatus[code]; ok {
		return status
	}
	return ExitFailure
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsConfigError reports whether the ErrorCode belongs to the fatal
// configuration class.
func IsConfigError(code ErrorCode) bool {
	return ExitStatusForCode(code) == ExitConfig
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
