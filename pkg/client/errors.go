// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// Operator-facing texts used when the server gave nothing better.
const (
	CommunicationFailureText = "An error occurred communicating with the server. " +
		"Please check the logs and fix any configuration issues before restarting."
	UnspecifiedErrorText = "An unspecified error occurred."
)

// ErrEntityMismatch is returned when a mutation targets a different entity than its payload.
var ErrEntityMismatch = errors.New("payload does not reference the entity being mutated")

// APIError is a failed call to the management API.
//
// StatusCode is 0 when no HTTP response was received (connection refused,
// timeout, cancelled context, rate limiter wait aborted).
type APIError struct {
	StatusCode int
	Message    string
	Method     string
	Path       string
	Err        error
}

// Error implements error.
func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// Unwrap returns the transport error, if any.
func (e *APIError) Unwrap() error {
	return e.Err
}

// StatusCode extracts the HTTP status of err.
//
// Returns (0, true) for transport failures and (0, false) when err is not an
// *APIError at all.
func StatusCode(err error) (int, bool) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return 0, false
	}
	return apiErr.StatusCode, true
}

// IsNotFound reports whether err is an HTTP 404.
func IsNotFound(err error) bool {
	s, ok := StatusCode(err)
	return ok && s == http.StatusNotFound
}

// IsForbidden reports whether err is an HTTP 403.
func IsForbidden(err error) bool {
	s, ok := StatusCode(err)
	return ok && s == http.StatusForbidden
}

// ShowErrorInContext reports whether an error with this status belongs next to
// the operation that caused it (banner, snackbar) rather than replacing the
// whole view.
func ShowErrorInContext(status int) bool {
	switch status {
	case http.StatusBadRequest,
		http.StatusForbidden,
		http.StatusNotFound,
		http.StatusConflict,
		http.StatusRequestEntityTooLarge,
		http.StatusServiceUnavailable:
		return true
	}
	return false
}

// ErrorString builds the operator-facing text for err.
//
// # Description
//
// Transport failures get CommunicationFailureText. API errors use the server
// message. Anything else uses err.Error(). A non-empty prefix renders as
// "prefix - [message]".
//
// # Examples
//
//	ErrorString(err, "Failed to create parameter provider")
//	// "Failed to create parameter provider - [Unable to find bundle]"
func ErrorString(err error, prefix string) string {
	msg := UnspecifiedErrorText
	var apiErr *APIError
	switch {
	case err == nil:
	case errors.As(err, &apiErr):
		if apiErr.StatusCode == 0 {
			msg = CommunicationFailureText
		} else if strings.TrimSpace(apiErr.Message) != "" {
			msg = apiErr.Message
		}
	default:
		msg = err.Error()
	}
	if prefix != "" {
		return prefix + " - [" + msg + "]"
	}
	return msg
}

// errorMessage extracts a message from an error response body.
//
// JSON bodies are searched for "message", then "error", then the first
// "errors[].message". Anything else is used as plain text.
func errorMessage(status int, body []byte) string {
	text := strings.TrimSpace(string(body))
	if gjson.ValidBytes(body) {
		for _, path := range []string{"message", "error", "errors.0.message"} {
			if r := gjson.GetBytes(body, path); r.Exists() && r.Type == gjson.String && r.Str != "" {
				return r.Str
			}
		}
		if r := gjson.ParseBytes(body); r.Type == gjson.String {
			text = r.Str
		}
	}
	if text == "" {
		return http.StatusText(status)
	}
	return text
}
