package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/aussiebroadwan/docsend/internal/docsend/apperr"
	"github.com/aussiebroadwan/docsend/internal/docsend/domain"
	"github.com/aussiebroadwan/docsend/internal/docsend/store"
	"github.com/aussiebroadwan/docsend/pkg/cryptox"
	"github.com/aussiebroadwan/docsend/pkg/idx"
	"github.com/aussiebroadwan/docsend/pkg/slogx"
)

// ResendCooldown is the minimum gap between two verification mails for the
// same identity.
const ResendCooldown = 60 * time.Second

var (
	errTokenRaced   = errors.New("verification token redeemed concurrently")
	errLimitReached = errors.New("verified identity limit reached")
	errIdentityGone = errors.New("identity no longer pending")
)

type SenderIdentityService struct {
	Store      store.Store
	Audit      *AuditTrail
	Transports TransportSource
	Platform   Platform
	Metrics    Metrics
	Now        func() time.Time
}

type CreateIdentityInput struct {
	Email       string `json:"email" validate:"required,email,max=254"`
	DisplayName string `json:"displayName" validate:"max=120,singleline"`
}

// Create registers email as a sender identity for ownerID and mails a
// verification link. A verified identity is returned unchanged; a disabled
// one is never revived.
func (s *SenderIdentityService) Create(
	ctx context.Context,
	ownerID string,
	in CreateIdentityInput,
	meta domain.RequestMeta,
) (domain.SenderIdentity, error) {
	log := slogx.FromContext(ctx)

	// 1. Normalise and validate.
	in.Email = domain.NormalizeEmail(in.Email)
	if err := validateStruct(in); err != nil {
		return domain.SenderIdentity{}, err
	}
	now := nowFrom(s.Now)

	// 2. Look for an existing identity with that address.
	si, err := s.Store.SenderIdentities().GetSenderIdentityByEmail(ctx, ownerID, in.Email)
	var rename *string
	switch {
	case err == nil:
		switch si.Status {
		case domain.IdentityVerified:
			return si, nil
		case domain.IdentityDisabled:
			return domain.SenderIdentity{}, apperr.Conflict(apperr.CodeIdentityDisabled, "sender identity is disabled")
		}
		if err := s.checkCooldown(si, now); err != nil {
			return domain.SenderIdentity{}, err
		}
		// Renamed together with the stamp, once the mail is out.
		if in.DisplayName != si.DisplayName {
			rename = &in.DisplayName
		}

	case errors.Is(err, store.ErrNotFound):
		si = domain.SenderIdentity{
			ID:          idx.NewAt(now).String(),
			OwnerID:     ownerID,
			Email:       in.Email,
			DisplayName: in.DisplayName,
			Status:      domain.IdentityPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.Store.SenderIdentities().CreateSenderIdentity(ctx, si); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return domain.SenderIdentity{}, apperr.Conflict(apperr.CodeOperationNotPermitted, "sender identity was created concurrently")
			}
			log.Error("failed to create sender identity", slog.Any("error", err))
			return domain.SenderIdentity{}, apperr.Internal(err)
		}
		log.Info("sender identity created", slog.String("sender_identity_id", si.ID))

	default:
		log.Error("failed to look up sender identity", slog.Any("error", err))
		return domain.SenderIdentity{}, apperr.Internal(err)
	}

	// 3. Issue the token and mail the link.
	if err := s.issue(ctx, &si, rename, meta, now); err != nil {
		return domain.SenderIdentity{}, err
	}
	return si, nil
}

// Resend issues a fresh verification link for a pending identity.
func (s *SenderIdentityService) Resend(ctx context.Context, ownerID, identityID string, meta domain.RequestMeta) (domain.SenderIdentity, error) {
	si, err := s.Store.SenderIdentities().GetOwnedSenderIdentity(ctx, ownerID, identityID)
	if err != nil {
		return domain.SenderIdentity{}, mapStoreErr(err, "sender identity")
	}

	switch si.Status {
	case domain.IdentityVerified:
		return domain.SenderIdentity{}, apperr.Conflict(apperr.CodeAlreadyVerified, "sender identity is already verified")
	case domain.IdentityDisabled:
		return domain.SenderIdentity{}, apperr.Conflict(apperr.CodeIdentityDisabled, "sender identity is disabled")
	}

	now := nowFrom(s.Now)
	if err := s.checkCooldown(si, now); err != nil {
		return domain.SenderIdentity{}, err
	}
	if err := s.issue(ctx, &si, nil, meta, now); err != nil {
		return domain.SenderIdentity{}, err
	}
	return si, nil
}

func (s *SenderIdentityService) checkCooldown(si domain.SenderIdentity, now time.Time) error {
	if si.LastVerificationSentAt == nil {
		return nil
	}
	wait := si.LastVerificationSentAt.Add(ResendCooldown).Sub(now)
	if wait <= 0 {
		return nil
	}
	return apperr.RateLimit(apperr.CodeCooldown, int(math.Ceil(wait.Seconds())))
}

// issue supersedes older tokens, stores the digest of a new secret, mails
// the raw secret and stamps the identity. A non-nil rename is applied with
// the stamp, so a failed mail leaves the identity as it was.
func (s *SenderIdentityService) issue(
	ctx context.Context,
	si *domain.SenderIdentity,
	rename *string,
	meta domain.RequestMeta,
	now time.Time,
) error {
	log := slogx.FromContext(ctx).With(slog.String("sender_identity_id", si.ID))

	// 1. Make sure mail can go out before anything is written.
	transport, err := s.Transports(ctx)
	if err != nil {
		log.Debug("mail transport unavailable", slog.Any("error", err))
		return collaboratorErr("mail transport", err)
	}

	// 2. Generate the secret; only its fingerprint is stored.
	raw, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return apperr.Internal(err)
	}
	token := domain.VerificationToken{
		ID:               idx.NewAt(now).String(),
		SenderIdentityID: si.ID,
		TokenHash:        cryptox.FingerprintToken(raw),
		ExpiresAt:        now.Add(domain.VerificationTokenTTL),
		RequestIP:        meta.IP,
		UserAgent:        truncate(meta.UserAgent, 512),
		CreatedAt:        now,
	}

	// 3. Supersede and store in one transaction.
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.VerificationTokens().SupersedeActive(ctx, si.ID, now); err != nil {
			return err
		}
		return tx.VerificationTokens().CreateVerificationToken(ctx, token)
	})
	if err != nil {
		log.Error("failed to store verification token", slog.Any("error", err))
		return apperr.Internal(err)
	}

	// 4. Mail the link.
	addressed := *si
	if rename != nil {
		addressed.DisplayName = *rename
	}
	msg := verificationMail(s.Platform, addressed, verificationLink(s.Platform.VerifyURL, raw))
	if err := transport.Send(ctx, msg); err != nil {
		log.Warn("failed to send verification mail", slog.Any("error", err))
		return apperr.Upstream("verification mail", err)
	}

	// 5. Stamp and audit.
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if rename != nil {
			if err := tx.SenderIdentities().UpdateDisplayName(ctx, si.ID, *rename, now); err != nil {
				return err
			}
		}
		if err := tx.SenderIdentities().MarkVerificationSent(ctx, si.ID, now); err != nil {
			return err
		}
		return s.Audit.Record(ctx, tx.AuditEvents(), domain.AuditEvent{
			OwnerID:    si.OwnerID,
			Action:     domain.AuditIdentityRequested,
			EntityType: domain.EntitySenderIdentity,
			EntityID:   si.ID,
			Metadata: map[string]any{
				"email":   si.Email,
				"tokenId": token.ID,
				"ip":      meta.IP,
				"expires": token.ExpiresAt.Format(time.RFC3339),
			},
			CreatedAt: now,
		})
	})
	if err != nil {
		log.Error("failed to stamp verification mail", slog.Any("error", err))
		return apperr.Internal(err)
	}

	si.DisplayName = addressed.DisplayName
	si.LastVerificationSentAt = &now
	log.Info("verification mail sent")
	return nil
}

// VerifyResult is the outcome of redeeming a verification link.
type VerifyResult struct {
	Outcome          domain.VerifyOutcome
	SenderIdentityID string
}

// Verify redeems a raw verification secret. It never returns an error;
// failures resolve to OutcomeError so the caller can always redirect.
func (s *SenderIdentityService) Verify(ctx context.Context, rawToken string) VerifyResult {
	res := s.verify(ctx, rawToken)
	metricsOrNoop(s.Metrics).VerificationFinished(string(res.Outcome))
	return res
}

func (s *SenderIdentityService) verify(ctx context.Context, rawToken string) VerifyResult {
	log := slogx.FromContext(ctx)
	now := nowFrom(s.Now)

	if rawToken == "" || len(rawToken) > 256 {
		return VerifyResult{Outcome: domain.OutcomeInvalid}
	}

	// 1. Look the token up by fingerprint.
	tok, err := s.Store.VerificationTokens().GetVerificationTokenByHash(ctx, cryptox.FingerprintToken(rawToken))
	if errors.Is(err, store.ErrNotFound) {
		log.Warn("verification attempted with unknown token")
		return VerifyResult{Outcome: domain.OutcomeInvalid}
	}
	if err != nil {
		log.Error("failed to fetch verification token", slog.Any("error", err))
		return VerifyResult{Outcome: domain.OutcomeError}
	}
	res := VerifyResult{SenderIdentityID: tok.SenderIdentityID}
	log = log.With(slog.String("sender_identity_id", tok.SenderIdentityID), slog.String("token_id", tok.ID))

	si, err := s.Store.SenderIdentities().GetSenderIdentity(ctx, tok.SenderIdentityID)
	if errors.Is(err, store.ErrNotFound) {
		res.Outcome = domain.OutcomeInvalid
		return res
	}
	if err != nil {
		log.Error("failed to fetch sender identity", slog.Any("error", err))
		res.Outcome = domain.OutcomeError
		return res
	}

	// 2. Outcomes that need no write, in priority order.
	switch {
	case si.Status == domain.IdentityDisabled:
		res.Outcome = domain.OutcomeInvalid
	case !now.Before(tok.ExpiresAt) || tok.SupersededAt != nil:
		res.Outcome = domain.OutcomeExpired
	case tok.UsedAt != nil || si.Status == domain.IdentityVerified:
		res.Outcome = domain.OutcomeUsed
	}
	if res.Outcome != "" {
		log.Info("verification rejected", slog.String("outcome", string(res.Outcome)))
		return res
	}

	// 3. Redeem: count, compare-and-set, verify and audit together.
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		n, err := tx.SenderIdentities().CountVerified(ctx, si.OwnerID)
		if err != nil {
			return err
		}
		if n >= domain.MaxVerifiedIdentities {
			return errLimitReached
		}

		ok, err := tx.VerificationTokens().MarkUsed(ctx, tok.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return errTokenRaced
		}

		if err := tx.SenderIdentities().MarkVerified(ctx, si.ID, now); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return errIdentityGone
			}
			return err
		}

		return s.Audit.Record(ctx, tx.AuditEvents(), domain.AuditEvent{
			OwnerID:    si.OwnerID,
			Action:     domain.AuditIdentityVerified,
			EntityType: domain.EntitySenderIdentity,
			EntityID:   si.ID,
			Metadata:   map[string]any{"email": si.Email, "tokenId": tok.ID},
			CreatedAt:  now,
		})
	})
	switch {
	case err == nil:
		res.Outcome = domain.OutcomeSuccess
		log.Info("sender identity verified")
	case errors.Is(err, errLimitReached):
		res.Outcome = domain.OutcomeLimit
		log.Warn("verified identity limit reached", slog.String("owner_id", si.OwnerID))
	case errors.Is(err, errTokenRaced):
		res.Outcome = domain.OutcomeUsed
	case errors.Is(err, errIdentityGone):
		res.Outcome = domain.OutcomeInvalid
	default:
		log.Error("failed to redeem verification token", slog.Any("error", err))
		res.Outcome = domain.OutcomeError
	}
	return res
}

// Disable retires an identity for good. Disabling twice is a no-op.
func (s *SenderIdentityService) Disable(ctx context.Context, ownerID, identityID string) (domain.SenderIdentity, error) {
	now := nowFrom(s.Now)
	var out domain.SenderIdentity
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		si, err := tx.SenderIdentities().GetOwnedSenderIdentity(ctx, ownerID, identityID)
		if err != nil {
			return err
		}
		if si.Status == domain.IdentityDisabled {
			out = si
			return nil
		}
		if err := tx.SenderIdentities().Disable(ctx, ownerID, identityID, now); err != nil {
			return err
		}
		si.Status = domain.IdentityDisabled
		si.UpdatedAt = now
		out = si
		return s.Audit.Record(ctx, tx.AuditEvents(), domain.AuditEvent{
			OwnerID:    ownerID,
			Action:     domain.AuditIdentityDisabled,
			EntityType: domain.EntitySenderIdentity,
			EntityID:   identityID,
			Metadata:   map[string]any{"email": si.Email},
			CreatedAt:  now,
		})
	})
	if err != nil {
		return domain.SenderIdentity{}, mapStoreErr(err, "sender identity")
	}
	slogx.FromContext(ctx).Info("sender identity disabled", slog.String("sender_identity_id", identityID))
	return out, nil
}

func (s *SenderIdentityService) List(ctx context.Context, ownerID string) ([]domain.SenderIdentity, error) {
	out, err := s.Store.SenderIdentities().ListSenderIdentities(ctx, ownerID)
	if err != nil {
		return nil, mapStoreErr(err, "sender identities")
	}
	return out, nil
}

// ResolveUsable re-checks, at the moment of use, that identityID belongs to
// ownerID and is verified. An empty identityID falls back to the owner's
// default.
func (s *SenderIdentityService) ResolveUsable(ctx context.Context, ownerID, identityID string) (domain.SenderIdentity, error) {
	if identityID == "" {
		settings, err := s.Store.Settings().GetOwnerSettings(ctx, ownerID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return domain.SenderIdentity{}, apperr.Internal(err)
		}
		identityID = settings.DefaultSenderIdentityID
	}
	if identityID == "" {
		return domain.SenderIdentity{}, apperr.Conflict(apperr.CodeNoSenderIdentity, "no sender identity selected and no default configured")
	}

	si, err := s.Store.SenderIdentities().GetOwnedSenderIdentity(ctx, ownerID, identityID)
	if err != nil {
		return domain.SenderIdentity{}, mapStoreErr(err, "sender identity")
	}
	if si.Status != domain.IdentityVerified {
		return domain.SenderIdentity{}, apperr.Conflict(apperr.CodeSenderNotVerified, "sender identity is not verified")
	}
	return si, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
