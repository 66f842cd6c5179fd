package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

type ErrorResponse struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

const (
	ErrCodeInvalidInput       = "INVALID_INPUT"
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeConflict           = "CONFLICT"
	ErrCodePreconditionFailed = "PRECONDITION_FAILED"
	ErrCodeUpstream           = "UPSTREAM_FAILURE"
	ErrCodeDataIntegrity      = "DATA_INTEGRITY"
	ErrCodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

func WriteError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}

// Kind classifies an application error. Its value doubles as the wire code.
type Kind string

const (
	KindUnauthorized       Kind = ErrCodeUnauthorized
	KindForbidden          Kind = ErrCodeForbidden
	KindNotFound           Kind = ErrCodeNotFound
	KindValidation         Kind = ErrCodeValidationFailed
	KindConflict           Kind = ErrCodeConflict
	KindPreconditionFailed Kind = ErrCodePreconditionFailed
	KindUpstream           Kind = ErrCodeUpstream
	KindDataIntegrity      Kind = ErrCodeDataIntegrity
	KindInternal           Kind = ErrCodeInternal
)

type Error struct {
	Kind    Kind
	Message string
	// Fields names the offending request fields for KindValidation.
	Fields []string
	// Missing is the absent subset of Fields when others are present but
	// invalid.
	Missing []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validation builds a KindValidation error naming the given fields.
func Validation(message string, fields ...string) *Error {
	if message == "" {
		message = "Missing required fields: " + strings.Join(fields, ", ")
	}
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Message: resource + " not found"}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func StatusOf(kind Kind) int {
	switch kind {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindPreconditionFailed:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Write translates err into the JSON error envelope. Errors that are not
// *Error, and internal or data-integrity errors, are logged and their cause
// is not exposed.
func Write(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *Error
	if !stderrors.As(err, &appErr) {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("unhandled error")
		WriteError(w, http.StatusInternalServerError, ErrCodeInternal, "Internal server error", nil)
		return
	}

	status := StatusOf(appErr.Kind)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Str("kind", string(appErr.Kind)).Msg("request failed")
	}

	var details interface{}
	if len(appErr.Fields) > 0 {
		d := map[string][]string{"fields": appErr.Fields}
		if len(appErr.Missing) > 0 {
			d["missing"] = appErr.Missing
			d["invalid"] = without(appErr.Fields, appErr.Missing)
		}
		details = d
	}

	message := appErr.Message
	if appErr.Kind == KindUpstream && appErr.Err != nil {
		message = appErr.Message + ": " + appErr.Err.Error()
	}

	WriteError(w, status, string(appErr.Kind), message, details)
}

func without(fields, drop []string) []string {
	skip := make(map[string]bool, len(drop))
	for _, f := range drop {
		skip[f] = true
	}
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if !skip[f] {
			out = append(out, f)
		}
	}
	return out
}
