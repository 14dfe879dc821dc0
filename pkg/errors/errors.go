package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeRateLimit    Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeDependency   Code = "DEPENDENCY_ERROR"

	// Entitlement codes: the caller is authenticated but the subscription
	// does not permit the action. Expected control flow, never logged as
	// failures.
	CodeNoSubscription       Code = "NO_SUBSCRIPTION"
	CodePremiumRequired      Code = "PREMIUM_REQUIRED"
	CodeSubscriptionInactive Code = "SUBSCRIPTION_INACTIVE"
	CodeAINotAvailable       Code = "AI_NOT_AVAILABLE"
	CodeTutoringNotAvailable Code = "TUTORING_NOT_AVAILABLE"
	CodeExerciseLimitReached Code = "EXERCISE_LIMIT_REACHED"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	Expected       bool
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		HTTPStatus:     http.StatusBadRequest,
		Expected:       true,
		PublicMessage:  "validation failed",
		DetailsAllowed: true,
	},
	CodeUnauthorized: {
		HTTPStatus:    http.StatusUnauthorized,
		Expected:      true,
		PublicMessage: "authentication required",
	},
	CodeForbidden: {
		HTTPStatus:    http.StatusForbidden,
		Expected:      true,
		PublicMessage: "access denied",
	},
	CodeNotFound: {
		HTTPStatus:    http.StatusNotFound,
		Expected:      true,
		PublicMessage: "resource not found",
	},
	CodeRateLimit: {
		HTTPStatus:    http.StatusTooManyRequests,
		Expected:      true,
		PublicMessage: "rate limit exceeded",
	},
	CodeInternal: {
		HTTPStatus:    http.StatusInternalServerError,
		Retryable:     true,
		PublicMessage: "internal server error",
	},
	CodeDependency: {
		HTTPStatus:     http.StatusBadGateway,
		Retryable:      true,
		PublicMessage:  "upstream dependency unavailable",
		DetailsAllowed: true,
	},
	CodeNoSubscription: {
		HTTPStatus:    http.StatusForbidden,
		Expected:      true,
		PublicMessage: "no subscription found",
	},
	CodePremiumRequired: {
		HTTPStatus:    http.StatusForbidden,
		Expected:      true,
		PublicMessage: "a premium plan is required",
	},
	CodeSubscriptionInactive: {
		HTTPStatus:    http.StatusForbidden,
		Expected:      true,
		PublicMessage: "subscription is not active",
	},
	CodeAINotAvailable: {
		HTTPStatus:    http.StatusForbidden,
		Expected:      true,
		PublicMessage: "AI features are not included in the current plan",
	},
	CodeTutoringNotAvailable: {
		HTTPStatus:    http.StatusForbidden,
		Expected:      true,
		PublicMessage: "tutoring is not included in the current plan",
	},
	CodeExerciseLimitReached: {
		HTTPStatus:     http.StatusForbidden,
		Expected:       true,
		PublicMessage:  "weekly exercise limit reached",
		DetailsAllowed: true,
	},
}

var entitlementCodes = map[Code]bool{
	CodeNoSubscription:       true,
	CodePremiumRequired:      true,
	CodeSubscriptionInactive: true,
	CodeAINotAvailable:       true,
	CodeTutoringNotAvailable: true,
	CodeExerciseLimitReached: true,
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// IsEntitlement reports whether the code belongs to the entitlement set.
func IsEntitlement(code Code) bool {
	return entitlementCodes[code]
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

func (e *Error) Error() string {
	if e == nil {
		return ""
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
