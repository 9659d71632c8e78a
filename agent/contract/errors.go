package contract

import (
	"errors"
	"fmt"
)

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrPromptMissing   = errors.New("required prompt is missing")
	ErrValidation      = errors.New("validation failed")

	ErrEmptyConversation = errors.New("conversation has no user message")
	ErrClassification    = errors.New("route classification failed")
	ErrUnregisteredRoute = errors.New("route has no registered specialist")
	ErrSpecialistRuntime = errors.New("specialist runtime failure")
)

// ClassificationError is returned by the router when the model call fails or
// yields a route outside the closed set. It is never resolved to a default.
type ClassificationError struct {
	Raw string
	Err error
}

func (e *ClassificationError) Error() string {
	if e.Raw != "" {
		return fmt.Sprintf("%s: raw=%q: %v", ErrClassification, e.Raw, e.Err)
	}
	return fmt.Sprintf("%s: %v", ErrClassification, e.Err)
}

func (e *ClassificationError) Unwrap() []error {
	return []error{ErrClassification, e.Err}
}

// UnregisteredRouteError is a configuration error: the dispatcher was handed a
// route that has no specialist node.
type UnregisteredRouteError struct {
	Route Route
}

func (e *UnregisteredRouteError) Error() string {
	return fmt.Sprintf("%s: route=%q", ErrUnregisteredRoute, string(e.Route))
}

func (e *UnregisteredRouteError) Unwrap() error {
	return ErrUnregisteredRoute
}

// SpecialistRuntimeError is contained at the specialist boundary and rendered
// as the user-visible response.
type SpecialistRuntimeError struct {
	Domain Domain
	Err    error
}

func (e *SpecialistRuntimeError) Error() string {
	return fmt.Sprintf("%s Agent error: %v", e.Domain.DisplayName, e.Err)
}

func (e *SpecialistRuntimeError) Unwrap() []error {
	return []error{ErrSpecialistRuntime, e.Err}
}
