package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "without cause",
			err:      NewValidationError("duplicate county row"),
			expected: "[VALIDATION] duplicate county row",
		},
		{
			name:     "with cause",
			err:      NewStorageError("failed to open schools file", errors.New("no such file")),
			expected: "[STORAGE] failed to open schools file: no such file",
		},
		{
			name:     "not found",
			err:      NewNotFoundError("table", "counties"),
			expected: "[NOT_FOUND] table counties not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestConstructors_SetType(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name     string
		err      *AppError
		expected ErrorType
	}{
		{name: "parsing", err: NewParsingError("bad cell", cause), expected: ErrTypeParsing},
		{name: "storage", err: NewStorageError("bad file", cause), expected: ErrTypeStorage},
		{name: "validation", err: NewValidationError("bad key"), expected: ErrTypeValidation},
		{name: "not found", err: NewNotFoundError("table", "tiers"), expected: ErrTypeNotFound},
		{name: "config", err: NewConfigError("bad config", cause), expected: ErrTypeConfig},
		{name: "model", err: NewModelError("no variance", nil), expected: ErrTypeModel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Type)
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("permission denied")
	err := NewStorageError("failed to create output dir", cause)

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, cause, err.Unwrap())
	assert.Nil(t, NewValidationError("x").Unwrap())
}

func TestAppError_WithContext(t *testing.T) {
	err := &AppError{Type: ErrTypeParsing, Message: "invalid value"}
	err.WithContext("file", "schools.csv").WithContext("line", 3)

	require.NotNil(t, err.Context)
	assert.Equal(t, "schools.csv", err.Context["file"])
	assert.Equal(t, 3, err.Context["line"])

	assert.Nil(t, NewParsingError("bad header", nil).Context)
	assert.Equal(t, map[string]interface{}{"regression": "slope"}, NewNotFoundError("regression", "slope").Context)
}

func TestIsType(t *testing.T) {
	wrapped := fmt.Errorf("load inputs: %w", NewParsingError("bad header", nil))

	assert.True(t, IsType(wrapped, ErrTypeParsing))
	assert.False(t, IsType(wrapped, ErrTypeStorage))
	assert.False(t, IsType(errors.New("plain"), ErrTypeParsing))
	assert.False(t, IsType(nil, ErrTypeParsing))

	assert.True(t, IsType(wrapped, ErrTypeValidation, ErrTypeParsing))
	assert.False(t, IsType(wrapped))
}
