package domain

import "errors"

var (
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrUpstreamFailure   = errors.New("upstream failure")
	ErrAlreadyOwned      = errors.New("already owned")
	ErrInvalidResource   = errors.New("invalid resource")
	ErrFreeResource      = errors.New("resource is free")
	ErrSellerUnavailable = errors.New("seller unavailable")
	ErrInvalidInput      = errors.New("invalid input")
)
