package services

import (
	"errors"
	"fmt"
)

// Domain errors. Callers match them with errors.Is.
var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrUnknownReferralCode  = errors.New("unknown referral code")
	ErrDuplicate            = errors.New("duplicate")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrDocumentsNotApproved = errors.New("required documents are not approved")
	ErrNotFound             = errors.New("not found")
	ErrInvalidTransition    = errors.New("invalid status transition")

	ErrPhoneRequired    = fmt.Errorf("%w: phone is required", ErrInvalidInput)
	ErrFeedbackRequired = fmt.Errorf("%w: feedback is required when rejecting", ErrInvalidInput)
	ErrDocumentExists   = fmt.Errorf("%w: a pending or approved document of this type already exists", ErrDuplicate)
	ErrEmailTaken       = fmt.Errorf("%w: email already registered", ErrDuplicate)
	ErrBadCredentials   = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
)
