package domain

import (
	"strings"
	"time"
)

type IdentityStatus string

const (
	IdentityPending  IdentityStatus = "pending"
	IdentityVerified IdentityStatus = "verified"
	IdentityDisabled IdentityStatus = "disabled"
)

// MaxVerifiedIdentities caps verified sender identities per owner.
const MaxVerifiedIdentities = 5

type SenderIdentity struct {
	ID                     string
	OwnerID                string
	Email                  string // trimmed, lower-cased
	DisplayName            string
	Status                 IdentityStatus
	VerifiedAt             *time.Time
	LastVerificationSentAt *time.Time
	LastUsedAt             *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
