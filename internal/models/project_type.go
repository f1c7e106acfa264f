package models

import (
	"errors"
	"fmt"
)

// ProjectType selects which projectConfig variant a project carries.
type ProjectType string

const (
	ProjectTypeSubquery   ProjectType = "Subquery"
	ProjectTypeChainRpc   ProjectType = "ChainRpc"
	ProjectTypeDictionary ProjectType = "Dictionary"
	ProjectTypeSubgraph   ProjectType = "Subgraph"
	ProjectTypeOther      ProjectType = "Other"
)

// ProjectTypes lists every recognized variant.
var ProjectTypes = []ProjectType{
	ProjectTypeSubquery,
	ProjectTypeChainRpc,
	ProjectTypeDictionary,
	ProjectTypeSubgraph,
	ProjectTypeOther,
}

// ErrInvalidProjectType matches both UnknownProjectTypeError and InvalidProjectTypeError.
var ErrInvalidProjectType = errors.New("invalid project type")

// UnknownProjectTypeError is returned when defaults are requested for a type outside the closed set.
type UnknownProjectTypeError struct {
	Type ProjectType
}

func (e *UnknownProjectTypeError) Error() string {
	return fmt.Sprintf("unknown project type %q", string(e.Type))
}

func (e *UnknownProjectTypeError) Is(target error) bool { return target == ErrInvalidProjectType }

// InvalidProjectTypeError is returned when a record carries a type outside the closed set,
// or a projectConfig variant that does not belong to its type.
type InvalidProjectTypeError struct {
	Type   ProjectType
	Reason string
}

func (e *InvalidProjectTypeError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid project type %q: %s", string(e.Type), e.Reason)
	}
	return fmt.Sprintf("invalid project type %q", string(e.Type))
}

func (e *InvalidProjectTypeError) Is(target error) bool { return target == ErrInvalidProjectType }

// Valid reports whether t is one of the recognized variants. The empty type is not valid.
func (t ProjectType) Valid() bool {
	switch t {
	case ProjectTypeSubquery, ProjectTypeChainRpc, ProjectTypeDictionary, ProjectTypeSubgraph, ProjectTypeOther:
		return true
	}
	return false
}

// ParseProjectType converts s into a ProjectType, rejecting anything outside the closed set.
func ParseProjectType(s string) (ProjectType, error) {
	t := ProjectType(s)
	if !t.Valid() {
		return "", &UnknownProjectTypeError{Type: t}
	}
	return t, nil
}
