// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package rpc

import (
	"encoding/json"
	"fmt"
)

// ErrorStatus returns the HTTP status code of an error reply or zero when
// the error did not originate from an HTTP response.
func ErrorStatus(err error) int {
	if e, ok := err.(HTTPStatus); ok {
		return e.StatusCode()
	}
	return 0
}

// Error is a single error reply from the governance API or token service.
type Error interface {
	error
	ErrorCode() int
}

// GenericError is one entry from an API error envelope.
type GenericError struct {
	Code      int    `json:"code"`
	Status    int    `json:"status"`
	Message   string `json:"message"`
	Scope     string `json:"scope"`
	Detail    string `json:"detail"`
	RequestId string `json:"request_id"`
}

func (e *GenericError) Error() string {
	return fmt.Sprintf("rpc: status=%d code=%d message=%q detail=%q", e.Status, e.Code, e.Message, e.Detail)
}

// ErrorCode returns the API error code
func (e *GenericError) ErrorCode() int {
	return e.Code
}

// HTTPStatus interface represents an unprocessed HTTP reply
type HTTPStatus interface {
	Request() string // e.g. GET /...
	Status() string  // e.g. "200 OK"
	StatusCode() int // e.g. 200
	Body() []byte
}

// HTTPError retains HTTP status
type HTTPError interface {
	error
	HTTPStatus
}

// ApiError is a decoded governance API error with HTTP status
type ApiError interface {
	Error
	HTTPStatus
	Errors() []*GenericError // returns all errors as a slice
}

// Errors is a slice of GenericError decoded from an error envelope
type Errors []*GenericError

// UnmarshalJSON implements json.Unmarshaler, the wire format wraps
// errors in an envelope object
func (e *Errors) UnmarshalJSON(data []byte) error {
	var resp struct {
		Errors []*GenericError `json:"errors"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return err
	}
	*e = Errors(resp.Errors)
	return nil
}

func (e Errors) Error() string {
	if len(e) == 0 {
		return ""
	}
	return e[0].Error()
}

// ErrorCode returns the first API error code
func (e Errors) ErrorCode() int {
	if len(e) == 0 {
		return 0
	}
	return e[0].ErrorCode()
}

type httpError struct {
	request    string
	status     string
	statusCode int
	body       []byte
}

func (e *httpError) Error() string {
	return fmt.Sprintf("rpc: %s status %d (%v)", e.request, e.statusCode, string(e.body))
}

func (e *httpError) Request() string {
	return e.request
}

func (e *httpError) Status() string {
	return e.status
}

func (e *httpError) StatusCode() int {
	return e.statusCode
}

func (e *httpError) Body() []byte {
	return e.body
}

type apiError struct {
	*httpError
	errors Errors
}

func (e *apiError) Error() string {
	return e.errors.Error()
}

func (e *apiError) ErrorCode() int {
	return e.errors.ErrorCode()
}

func (e *apiError) Errors() []*GenericError {
	return e.errors
}

type plainError struct {
	*httpError
	msg string
}

func (e *plainError) Error() string {
	return e.msg
}

// IsApiError returns the decoded error entries when err was produced from
// a well-formed API error envelope.
func IsApiError(err error) (Errors, bool) {
	e, ok := err.(*apiError)
	if !ok {
		return nil, false
	}
	return e.errors, true
}

var (
	_ Error    = &GenericError{}
	_ Error    = Errors{}
	_ ApiError = &apiError{}
	_ Error    = &apiError{}
)
