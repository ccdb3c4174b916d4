package errors

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode_String(t *testing.T) {
	assert.Equal(t, "COMMON_001", ErrCodeInternal.String())
}

func TestExitStatusForCode(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected int
	}{
		{CodeOK, ExitOK},
		{ErrCodeInternal, ExitFailure},
		{ErrCodeInvalidConfig, ExitConfig},
		{ErrCodeMissingCollaborator, ExitConfig},
		{ErrCodeComparisonNotFound, ExitConfig},
		{ErrCodeDataFile, ExitData},
		{ErrCodeMathDomain, ExitFailure},
		{ErrorCode("UNKNOWN"), ExitFailure},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, ExitStatusForCode(tt.code), tt.code.String())
	}
}

func TestDefaultMessageForCode(t *testing.T) {
	assert.Equal(t, "internal error", DefaultMessageForCode(ErrCodeInternal))
	assert.Equal(t, "scoring precondition violated", DefaultMessageForCode(ErrCodeScoringPrecondition))
	assert.Equal(t, "unknown error", DefaultMessageForCode(ErrorCode("UNKNOWN")))
}

func TestIsConfigError(t *testing.T) {
	assert.True(t, IsConfigError(ErrCodeInvalidConfig))
	assert.False(t, IsConfigError(ErrCodeComputation))
}

func TestModuleForCode(t *testing.T) {
	assert.Equal(t, "COMMON", ModuleForCode(ErrCodeInternal))
	assert.Equal(t, "CFG", ModuleForCode(ErrCodeInvalidConfig))
	assert.Equal(t, "DAT", ModuleForCode(ErrCodeDataFile))
	assert.Equal(t, "RCR", ModuleForCode(ErrCodeMathDomain))
	assert.Equal(t, "UNKNOWN", ModuleForCode(ErrorCode("")))
}

func TestErrorCodeFormat_Convention(t *testing.T) {
	pattern := regexp.MustCompile(`^[A-Z]+_\d{3}$`)
	for code := range ErrorCodeMessage {
		assert.Regexp(t, pattern, string(code))
	}
}
