package errors

import (
	stdErrors "errors"
	"fmt"
)

type Code string

const (
	CodeSchema            Code = "SCHEMA_ERROR"
	CodeSourceUnavailable Code = "SOURCE_UNAVAILABLE"
	CodeTransientStore    Code = "TRANSIENT_STORE"
	CodeIntegrity         Code = "INTEGRITY_VIOLATION"
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeConflict          Code = "CONFLICT"
	CodeDependency        Code = "DEPENDENCY_ERROR"
	CodeInternal          Code = "INTERNAL_ERROR"
)

type Metadata struct {
	// Retryable marks errors where re-running the whole stage may succeed.
	Retryable     bool
	PublicMessage string
}

var metadataByCode = map[Code]Metadata{
	CodeSchema: {
		Retryable:     false,
		PublicMessage: "schema operation failed",
	},
	CodeSourceUnavailable: {
		Retryable:     false,
		PublicMessage: "staging relation unavailable",
	},
	CodeTransientStore: {
		Retryable:     true,
		PublicMessage: "warehouse temporarily unavailable",
	},
	CodeIntegrity: {
		Retryable:     false,
		PublicMessage: "integrity check failed",
	},
	CodeValidation: {
		Retryable:     false,
		PublicMessage: "validation failed",
	},
	CodeConflict: {
		Retryable:     true,
		PublicMessage: "another run owns the warehouse",
	},
	CodeDependency: {
		Retryable:     true,
		PublicMessage: "dependency unavailable",
	},
	CodeInternal: {
		Retryable:     false,
		PublicMessage: "internal error",
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

// Error renders the code, the message and the verbatim cause text.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf returns the code of the outermost typed error in the chain.
func CodeOf(err error) Code {
	if typed := As(err); typed != nil {
		return typed.Code()
	}
	return CodeInternal
}
