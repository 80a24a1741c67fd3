package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorType_Constants(t *testing.T) {
	tests := []struct {
		name     string
		errType  ErrorType
		expected string
	}{
		{name: "format error type", errType: ErrTypeFormat, expected: "FORMAT"},
		{name: "schema error type", errType: ErrTypeSchema, expected: "SCHEMA"},
		{name: "config error type", errType: ErrTypeConfig, expected: "CONFIG"},
		{name: "storage error type", errType: ErrTypeStorage, expected: "STORAGE"},
		{name: "render error type", errType: ErrTypeRender, expected: "RENDER"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.errType))
		})
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name        string
		appError    *AppError
		wantMessage string
	}{
		{
			name:        "error without cause",
			appError:    &AppError{Type: ErrTypeSchema, Message: "period column 統計期 not found"},
			wantMessage: "[SCHEMA] period column 統計期 not found",
		},
		{
			name: "error with cause",
			appError: &AppError{
				Type:    ErrTypeFormat,
				Message: "invalid ROC year in \"0年1月\"",
				Cause:   fmt.Errorf("year must be positive"),
			},
			wantMessage: "[FORMAT] invalid ROC year in \"0年1月\": year must be positive",
		},
		{
			name:        "error with empty message",
			appError:    &AppError{Type: ErrTypeConfig},
			wantMessage: "[CONFIG] ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMessage, tt.appError.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := NewStorageError("failed to write chart", cause)

	assert.Same(t, cause, err.Unwrap())
	assert.True(t, errors.Is(err, cause))
	assert.Nil(t, NewSchemaError("no rows").Unwrap())
}

func TestAppError_WithContext(t *testing.T) {
	err := NewSchemaError("duplicate period").
		WithContext("period", "109年1月").
		WithContext("row", 7)

	assert.Equal(t, "109年1月", err.Context["period"])
	assert.Equal(t, 7, err.Context["row"])

	bare := &AppError{Type: ErrTypeRender, Message: "nothing to draw"}
	bare.WithContext("categories", 0)
	require.NotNil(t, bare.Context)
	assert.Equal(t, 0, bare.Context["categories"])
}

func TestConstructors(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name    string
		err     *AppError
		errType ErrorType
		cause   error
	}{
		{name: "format", err: NewFormatError("bad label", cause), errType: ErrTypeFormat, cause: cause},
		{name: "schema", err: NewSchemaError("no rows"), errType: ErrTypeSchema},
		{name: "config", err: NewConfigError("no categories", nil), errType: ErrTypeConfig},
		{name: "storage", err: NewStorageError("open failed", cause), errType: ErrTypeStorage, cause: cause},
		{name: "render", err: NewRenderError("draw failed", cause), errType: ErrTypeRender, cause: cause},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.errType, tt.err.Type)
			assert.Equal(t, tt.cause, tt.err.Cause)
			assert.NotNil(t, tt.err.Context)
		})
	}
}

func TestIsType(t *testing.T) {
	schemaErr := NewSchemaError("period column missing")
	wrapped := fmt.Errorf("clean cpi table: %w", schemaErr)

	assert.True(t, IsType(schemaErr, ErrTypeSchema))
	assert.True(t, IsType(wrapped, ErrTypeSchema))
	assert.False(t, IsType(wrapped, ErrTypeFormat))
	assert.False(t, IsType(errors.New("plain"), ErrTypeSchema))
	assert.False(t, IsType(nil, ErrTypeSchema))

	assert.Equal(t, ErrTypeSchema, TypeOf(wrapped))
	assert.Equal(t, ErrorType(""), TypeOf(errors.New("plain")))
}
