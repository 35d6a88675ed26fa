package dispenser

import coreerrors "launchpad/core/errors"

var (
	ErrNotInitialized        = coreerrors.New(coreerrors.KindState, "NotInitialized", "dispenser: not initialized")
	ErrAlreadyInitialized    = coreerrors.New(coreerrors.KindState, "AlreadyInitialized", "dispenser: already initialized")
	ErrInvalidParams         = coreerrors.New(coreerrors.KindValidation, "InvalidParams", "dispenser: invalid parameters")
	ErrUnauthorized          = coreerrors.New(coreerrors.KindAuthorization, "Unauthorized", "dispenser: unauthorized")
	ErrInvalidAmount         = coreerrors.New(coreerrors.KindValidation, "InvalidAmount", "dispenser: amount must be positive")
	ErrInvalidContributionID = coreerrors.New(coreerrors.KindValidation, "InvalidParams", "dispenser: contribution id must be 1-64 bytes")
	ErrInvalidRecipient      = coreerrors.New(coreerrors.KindValidation, "InvalidWallet", "dispenser: invalid recipient")
	ErrDuplicateContribution = coreerrors.New(coreerrors.KindState, "DuplicateContribution", "dispenser: contribution already queued")
	ErrDistributionNotFound  = coreerrors.New(coreerrors.KindValidation, "NotQueued", "dispenser: distribution not found")
	ErrNotQueued             = coreerrors.New(coreerrors.KindState, "NotQueued", "dispenser: distribution not queued")
	ErrAlreadyDistributed    = coreerrors.New(coreerrors.KindState, "AlreadyDistributed", "dispenser: distribution already executed")
	ErrPaused                = coreerrors.New(coreerrors.KindState, "Paused", "dispenser: paused")
	ErrAmountAboveCeiling    = coreerrors.New(coreerrors.KindCapacity, "ExceedsMaxDistribution", "dispenser: amount exceeds single distribution ceiling")
	ErrRecipientMismatch     = coreerrors.New(coreerrors.KindAuthorization, "RecipientMismatch", "dispenser: destination owner does not match recipient")
	ErrMintMismatch          = coreerrors.New(coreerrors.KindValidation, "InvalidWallet", "dispenser: destination mint mismatch")
)
