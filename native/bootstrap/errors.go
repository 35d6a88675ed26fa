package bootstrap

import coreerrors "launchpad/core/errors"

var (
	ErrNotInitialized        = coreerrors.New(coreerrors.KindState, "NotInitialized", "bootstrap: not initialized")
	ErrAlreadyInitialized    = coreerrors.New(coreerrors.KindState, "AlreadyInitialized", "bootstrap: already initialized")
	ErrInvalidParams         = coreerrors.New(coreerrors.KindValidation, "InvalidParams", "bootstrap: invalid parameters")
	ErrUnauthorized          = coreerrors.New(coreerrors.KindAuthorization, "Unauthorized", "bootstrap: unauthorized")
	ErrPaused                = coreerrors.New(coreerrors.KindState, "Paused", "bootstrap: contributions paused")
	ErrBootstrapComplete     = coreerrors.New(coreerrors.KindState, "BootstrapComplete", "bootstrap: sale already complete")
	ErrBootstrapNotComplete  = coreerrors.New(coreerrors.KindState, "BootstrapNotComplete", "bootstrap: sale not complete")
	ErrInvalidAmount         = coreerrors.New(coreerrors.KindValidation, "InvalidAmount", "bootstrap: invalid amount")
	ErrBelowMinimum          = coreerrors.New(coreerrors.KindValidation, "BelowMinimum", "bootstrap: contribution below minimum")
	ErrExceedsMaxPerWallet   = coreerrors.New(coreerrors.KindCapacity, "ExceedsMaxPerWallet", "bootstrap: contribution exceeds per-wallet maximum")
	ErrAllocationCapExceeded = coreerrors.New(coreerrors.KindCapacity, "AllocationCapExceeded", "bootstrap: allocation cap exceeded")
	ErrZeroAllocation        = coreerrors.New(coreerrors.KindValidation, "InvalidAmount", "bootstrap: contribution buys no tokens")
	ErrInvalidWallet         = coreerrors.New(coreerrors.KindValidation, "InvalidWallet", "bootstrap: invalid wallet")
	ErrContributorNotFound   = coreerrors.New(coreerrors.KindValidation, "InvalidWallet", "bootstrap: contributor not found")
	ErrAlreadyDistributed    = coreerrors.New(coreerrors.KindState, "AlreadyDistributed", "bootstrap: contributor already distributed")
	ErrPoolFinalized         = coreerrors.New(coreerrors.KindState, "PoolAlreadyFinalized", "bootstrap: pool already finalized")
)
