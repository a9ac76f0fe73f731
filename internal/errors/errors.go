// Package errors provides error handling for the demographic model.
//
// It re-exports github.com/cockroachdb/errors and adds the sentinel errors
// shared by the agent hierarchy, the event engine and the config layer:
//
//	// identity errors: wrap the sentinel so errors.Is keeps working
//	return errors.Wrapf(errors.ErrDuplicateMember, "person %d in household %d", pid, hid)
//
//	// life-cycle contract violations are assertion failures
//	return errors.AssertionFailedf("person %d is male and cannot give birth", pid)
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// Details and hints
var (
	WithHint      = crdb.WithHint
	WithHintf     = crdb.WithHintf
	WithDetail    = crdb.WithDetail
	WithDetailf   = crdb.WithDetailf
	GetAllHints   = crdb.GetAllHints
	GetAllDetails = crdb.GetAllDetails
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Assertions
var (
	AssertionFailedf   = crdb.AssertionFailedf
	IsAssertionFailure = crdb.IsAssertionFailure
)

// Identity errors. These indicate programming or data-integrity defects and
// are never retried.
var (
	// ErrDuplicateMember is returned when an agent is added to a set that
	// already holds its identifier.
	ErrDuplicateMember = New("agent already a member of set")

	// ErrMemberNotFound is returned when removing or resolving an agent that
	// is not in the set.
	ErrMemberNotFound = New("agent not a member of set")

	// ErrDuplicateID is returned when reserving an identifier that was
	// already issued.
	ErrDuplicateID = New("identifier already issued")

	// ErrInvalidID is returned for the zero identifier, which means "absent".
	ErrInvalidID = New("invalid identifier")
)

// Configuration errors.
var (
	// ErrMissingHazard is returned when a hazard table has no entry for an
	// age that was encountered during a step.
	ErrMissingHazard = New("hazard table has no entry for age")

	// ErrInvalidConfig is returned by config validation.
	ErrInvalidConfig = New("invalid configuration")
)

// IsIdentityError reports whether err is one of the identity errors.
func IsIdentityError(err error) bool {
	return IsAny(err, ErrDuplicateMember, ErrMemberNotFound, ErrDuplicateID, ErrInvalidID)
}

// IsFatal reports whether err must abort the run: contract violations and
// identity errors both indicate corrupted state.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return IsAssertionFailure(err) || IsIdentityError(err)
}
