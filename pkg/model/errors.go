package model

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is checks against the typed errors below.
var (
	ErrValidation     = errors.New("bundle validation failed")
	ErrWarning        = errors.New("bundle validation warning")
	ErrLinkResolution = errors.New("link endpoint not in graph")
	ErrTransition     = errors.New("invalid mode transition")
)

// ValidationError means the bundle is structurally invalid. Nothing is built.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ValidationWarning means the bundle is acceptable but suspicious. Graph
// construction proceeds and the warning is surfaced to the user.
type ValidationWarning struct {
	Field  string
	Reason string
}

func (w *ValidationWarning) Error() string {
	if w.Field == "" {
		return w.Reason
	}
	return fmt.Sprintf("%s: %s", w.Field, w.Reason)
}

func (w *ValidationWarning) Is(target error) bool { return target == ErrWarning }

// LinkResolutionError reports a link whose endpoint is missing from its graph.
type LinkResolutionError struct {
	Index    int
	Endpoint string
	NodeID   string
}

func (e *LinkResolutionError) Error() string {
	return fmt.Sprintf("link %d: %s %q not in graph", e.Index, e.Endpoint, e.NodeID)
}

func (e *LinkResolutionError) Is(target error) bool { return target == ErrLinkResolution }

// TransitionError reports a mode change that cannot proceed.
type TransitionError struct {
	From   Mode
	To     Mode
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transition %s -> %s: %s", e.From, e.To, e.Reason)
}

func (e *TransitionError) Is(target error) bool { return target == ErrTransition }
