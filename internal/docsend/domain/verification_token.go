package domain

import "time"

// VerificationTokenTTL is how long an issued verification link stays valid.
const VerificationTokenTTL = 24 * time.Hour

type VerificationToken struct {
	ID               string
	SenderIdentityID string
	TokenHash        string // base64url SHA-256 of the raw secret
	ExpiresAt        time.Time
	UsedAt           *time.Time
	SupersededAt     *time.Time
	RequestIP        string
	UserAgent        string
	CreatedAt        time.Time
}

// RequestMeta describes the request that caused a token to be issued.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// VerifyOutcome is the reason code a redemption resolves to.
type VerifyOutcome string

const (
	OutcomeInvalid VerifyOutcome = "invalid"
	OutcomeUsed    VerifyOutcome = "used"
	OutcomeExpired VerifyOutcome = "expired"
	OutcomeLimit   VerifyOutcome = "limit"
	OutcomeSuccess VerifyOutcome = "success"
	OutcomeError   VerifyOutcome = "error"
)
