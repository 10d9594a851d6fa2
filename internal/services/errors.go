package services

import (
	"errors"
)

var (
	// ErrPolicyNotFound is returned when an explicitly requested policy does not exist
	ErrPolicyNotFound = errors.New("pricing policy not found")
	// ErrNoPolicyFound means even the global fallback policy is missing: a configuration error
	ErrNoPolicyFound = errors.New("no pricing policy configured: global fallback policy is missing")
	// ErrReleaseNotFound is returned when a release id does not exist
	ErrReleaseNotFound = errors.New("release not found")
	// ErrAuditNotFound is returned when an audit record id does not exist
	ErrAuditNotFound = errors.New("pricing audit not found")
	// ErrUnknownCondition is returned by strict condition validation
	ErrUnknownCondition = errors.New("unknown condition")
	// ErrNoFetcher is returned when no market client is configured for a source
	ErrNoFetcher = errors.New("no market data client configured for source")
)
