package services

import "errors"

// Expected-condition sentinels shared by the ledger services. Handlers map
// these to HTTP statuses; anything else is treated as an internal fault.
var (
	// ErrConcurrencyConflict means the caller's version no longer matches the
	// stored one. Recoverable: reload and retry.
	ErrConcurrencyConflict = errors.New("record was changed by someone else")
	// ErrRecordNotFound means the target vanished between resolution and write.
	ErrRecordNotFound = errors.New("record not found")
	// ErrDuplicateCode means the business code is already used by another record.
	ErrDuplicateCode = errors.New("employee code already in use")
	// ErrIdentityProvider wraps failures talking to the identity provider.
	ErrIdentityProvider = errors.New("identity provider error")
	// ErrAmbiguousIdentity means more than one identity matched the same
	// resolution rule. The caller must re-link with an explicit identity id.
	ErrAmbiguousIdentity = errors.New("multiple identities match employee")
)
