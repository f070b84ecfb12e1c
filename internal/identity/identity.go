// Package identity verifies external sign-in credentials and normalizes
// them into a provider-neutral identity.
package identity

import (
	"context"
	"errors"
)

var ErrInvalidCredential = errors.New("invalid credential")

// Identity is a verified external identity.
type Identity struct {
	SubjectID     string
	Email         string
	Name          string
	Picture       string
	EmailVerified bool
}

// Verifier checks a raw credential and returns the identity it asserts.
type Verifier interface {
	Verify(ctx context.Context, credential string) (*Identity, error)
}
