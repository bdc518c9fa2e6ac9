// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckport Contributors

package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

// Canonical render taxonomy. Every error surfaced by a provider carries
// exactly one of these codes; provider-specific detail rides along as
// structured context and never replaces the code.
const (
	CodeInvalidRange           Code = "invalid_range"
	CodeEmptySelection         Code = "empty_selection"
	CodeUnsupportedOption      Code = "unsupported_option"
	CodeConflictingOptions     Code = "conflicting_options"
	CodeBackendCrashed         Code = "backend_crashed"
	CodeTimeout                Code = "timeout"
	CodeUnavailable            Code = "unavailable"
	CodePermissionDenied       Code = "permission_denied"
	CodeResourceLimitsExceeded Code = "resource_limits_exceeded"
)

// Infrastructure codes for failures outside a provider's render path.
const (
	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"

	CodeRegistryDuplicateName Code = "registry.register.duplicate_name"
	CodeRegistryNotFound      Code = "registry.lookup.not_found"

	CodePluginManifestInvalid  Code = "plugin.manifest.invalid"
	CodePluginDiscoveryFailure Code = "plugin.discovery.failure"
	CodePluginHandshakeFailure Code = "plugin.handshake.failure"

	CodeCLIInputInvalid Code = "cli.input.invalid"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldProvider(value string) Attr {
	return Field("provider", value)
}

func FieldJobID(value string) Attr {
	return Field("job_id", value)
}

func FieldEndpoint(value string) Attr {
	return Field("endpoint", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain without
// disturbing its code.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeUnavailable
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// IsRetryable reports whether the error may succeed on another attempt.
// Only transient backend failures qualify; every other taxonomy code is
// terminal and must surface immediately.
func IsRetryable(err error) bool {
	code := CodeOf(err)
	return code == CodeTimeout || code == CodeBackendCrashed
}

func IsUnavailable(err error) bool {
	return HasCode(err, CodeUnavailable)
}

func IsTimeout(err error) bool {
	return reason(CodeOf(err)) == "timeout"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid_range" || r == "conflicting_options" ||
		r == "invalid" || r == "invalid_value" || r == "duplicate_name"
}

func Join(errs ...error) error {
	return oops.Code(CodeUnavailable).Wrap(stderrors.Join(errs...))
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
