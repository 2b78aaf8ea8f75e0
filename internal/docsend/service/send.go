package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/docsend/internal/docsend/apperr"
	"github.com/aussiebroadwan/docsend/internal/docsend/domain"
	"github.com/aussiebroadwan/docsend/internal/docsend/lifecycle"
	"github.com/aussiebroadwan/docsend/internal/docsend/render"
	"github.com/aussiebroadwan/docsend/internal/docsend/store"
	"github.com/aussiebroadwan/docsend/pkg/cryptox"
	"github.com/aussiebroadwan/docsend/pkg/ratelimit"
	"github.com/aussiebroadwan/docsend/pkg/slogx"
)

// Rate limit scopes consulted by the send pipeline.
const (
	ScopeSendIP   = "send:ip"
	ScopeSendUser = "send:user"
)

// DefaultSendTimeout bounds one pipeline run end to end.
const DefaultSendTimeout = 2 * time.Minute

type SendService struct {
	Store      store.Store
	Limiter    ratelimit.Checker
	Principals PrincipalResolver
	Identities *SenderIdentityService
	Audit      *AuditTrail
	Renderers  RendererSource
	Transports TransportSource
	Platform   Platform
	Metrics    Metrics
	Now        func() time.Time
	Timeout    time.Duration
}

type SendInput struct {
	// Credential is the raw bearer token; ClientIP the caller's address.
	Credential string `json:"-"`
	ClientIP   string `json:"-"`

	DocumentID       string `json:"documentId" validate:"required,max=64"`
	Type             string `json:"type" validate:"required,oneof=invoice offer"`
	To               string `json:"to" validate:"required,email,max=254"`
	Subject          string `json:"subject" validate:"required,max=200,singleline"`
	Message          string `json:"message" validate:"max=5000"`
	SenderIdentityID string `json:"senderIdentityId" validate:"omitempty,max=64"`
	// Purpose selects which send capability is checked: the default
	// "initial", or "reminder" and "dunning" for follow-ups on invoices.
	Purpose string `json:"purpose" validate:"omitempty,oneof=initial reminder dunning"`

	LegacyDocument json.RawMessage `json:"legacyDocument,omitempty"`
	ContentDigest  string          `json:"contentDigest" validate:"omitempty,hexadecimal,len=64"`
}

type SendResult struct {
	DocumentID string          `json:"documentId"`
	Type       string          `json:"type"`
	Phase      lifecycle.Phase `json:"phase"`
	SentCount  int             `json:"sentCount"`
	SentAt     *time.Time      `json:"sentAt,omitempty"`
	LastSentAt *time.Time      `json:"lastSentAt,omitempty"`
	Filename   string          `json:"filename"`
}

// snapshot is everything loaded in the read transaction.
type snapshot struct {
	doc      domain.Document
	settings domain.OwnerSettings
	client   domain.Client
}

// Send runs the whole pipeline. Nothing is written unless the mail went
// out; after that the bookkeeping commits in a single transaction.
//
// The caller's cancellation is ignored: a client that disconnects after the
// mail was handed to the relay must not lose the write-back.
func (s *SendService) Send(ctx context.Context, in SendInput) (res SendResult, err error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	defer func() {
		result := "ok"
		if err != nil {
			result = apperr.As(err).Code
		}
		metricsOrNoop(s.Metrics).SendFinished(in.Type, result)
	}()

	log := slogx.FromContext(ctx).With(
		slog.String("document_id", in.DocumentID),
		slog.String("document_type", in.Type),
	)

	// 1. Validate.
	in.Type = strings.ToLower(strings.TrimSpace(in.Type))
	in.To = strings.TrimSpace(in.To)
	in.Subject = strings.TrimSpace(in.Subject)
	in.ContentDigest = strings.ToLower(strings.TrimSpace(in.ContentDigest))
	if err := validateStruct(in); err != nil {
		return SendResult{}, err
	}
	var legacy *domain.Document
	if len(in.LegacyDocument) > 0 && string(in.LegacyDocument) != "null" {
		if in.ContentDigest == "" {
			return SendResult{}, apperr.Validation("legacyDocument requires contentDigest", map[string]string{"contentDigest": "required_with"})
		}
		d, err := domain.DecodeLegacyDocument(in.LegacyDocument)
		if err != nil {
			return SendResult{}, apperr.Validation(err.Error(), map[string]string{"legacyDocument": "format"})
		}
		if d.ID != "" && d.ID != in.DocumentID {
			return SendResult{}, apperr.Validation("legacyDocument does not match documentId", map[string]string{"legacyDocument": "eqfield"})
		}
		legacy = &d
	}
	docType := domain.DocumentType(in.Type)
	op := sendOp(in.Purpose)

	// 2. Per-IP budget.
	if err := s.consume(ctx, ScopeSendIP, in.ClientIP); err != nil {
		return SendResult{}, err
	}

	// 3. Caller, then per-user budget.
	principal, err := s.Principals.ResolvePrincipal(ctx, in.Credential)
	if err != nil {
		return SendResult{}, err
	}
	ownerID := principal.OwnerID
	ctx = slogx.WithOwner(ctx, ownerID)
	log = log.With(slog.String("owner_id", ownerID))
	if err := s.consume(ctx, ScopeSendUser, ownerID); err != nil {
		return SendResult{}, err
	}

	// 4. One consistent snapshot.
	snap, err := s.loadSnapshot(ctx, ownerID, docType, in.DocumentID)
	if err != nil {
		return SendResult{}, err
	}
	now := nowFrom(s.Now)

	// 5. Reject stale or tampered client copies.
	if in.ContentDigest != "" {
		if err := checkDigest(&snap.doc, legacy, in.ContentDigest); err != nil {
			log.Warn("stale document rejected")
			return SendResult{}, err
		}
	}

	// 6. Lifecycle gate.
	if err := lifecycle.Require(&snap.doc, now, op); err != nil {
		return SendResult{}, mapLifecycleErr(err)
	}

	// 7. Sender identity, re-validated now.
	identityID := in.SenderIdentityID
	if identityID == "" {
		identityID = snap.settings.DefaultSenderIdentityID
	}
	sender, err := s.Identities.ResolveUsable(ctx, ownerID, identityID)
	if err != nil {
		return SendResult{}, err
	}

	// 8. Render.
	renderer, err := s.Renderers(ctx)
	if err != nil {
		log.Debug("renderer unavailable", slog.Any("error", err))
		return SendResult{}, collaboratorErr("renderer", err)
	}
	art, err := renderer.Render(ctx, render.Input{
		Document: snap.doc,
		Client:   snap.client,
		Settings: snap.settings,
		Sender:   sender,
	})
	if err != nil {
		log.Error("render failed", slog.Any("error", err))
		return SendResult{}, apperr.Upstream("renderer", err)
	}

	// 9. Dispatch. No retry: the caller may run the pipeline again.
	transport, err := s.Transports(ctx)
	if err != nil {
		log.Debug("mail transport unavailable", slog.Any("error", err))
		return SendResult{}, collaboratorErr("mail transport", err)
	}
	msg := documentMail(s.Platform, sender, snap.settings, in.To, in.Subject, in.Message, art)
	if err := transport.Send(ctx, msg); err != nil {
		log.Error("mail dispatch failed", slog.Any("error", err))
		return SendResult{}, apperr.Upstream("mail transport", err)
	}

	// 10. Write back everything or nothing.
	sentAt := nowFrom(s.Now)
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.SenderIdentities().TouchLastUsed(ctx, sender.ID, sentAt); err != nil {
			return err
		}
		if err := s.Audit.Record(ctx, tx.AuditEvents(), domain.AuditEvent{
			OwnerID:    ownerID,
			Action:     domain.AuditDocumentSent,
			EntityType: domain.EntityDocument,
			EntityID:   snap.doc.ID,
			Metadata: map[string]any{
				"type":             string(docType),
				"to":               in.To,
				"subject":          in.Subject,
				"senderIdentityId": sender.ID,
				"purpose":          string(op),
				"filename":         art.Filename,
			},
			CreatedAt: sentAt,
		}); err != nil {
			return err
		}
		return tx.Documents().MarkSent(ctx, store.SentUpdate{
			OwnerID: ownerID,
			ID:      snap.doc.ID,
			Type:    docType,
			At:      sentAt,
		})
	})
	if err != nil {
		log.Error("mail was sent but the send metadata could not be written", slog.Any("error", err))
		return SendResult{}, apperr.Internal(err)
	}

	doc, err := s.Store.Documents().GetDocument(ctx, ownerID, docType, snap.doc.ID)
	if err != nil {
		return SendResult{}, mapStoreErr(err, "document")
	}
	log.Info("document sent", slog.Int("sent_count", doc.SentCount), slog.String("sender_identity_id", sender.ID))

	return SendResult{
		DocumentID: doc.ID,
		Type:       string(doc.Type),
		Phase:      lifecycle.PhaseOf(&doc, sentAt),
		SentCount:  doc.SentCount,
		SentAt:     doc.SentAt,
		LastSentAt: doc.LastSentAt,
		Filename:   art.Filename,
	}, nil
}

func sendOp(purpose string) lifecycle.Op {
	switch purpose {
	case "reminder":
		return lifecycle.OpSendReminder
	case "dunning":
		return lifecycle.OpSendDunning
	default:
		return lifecycle.OpSend
	}
}

// consume charges one request against scope for id.
func (s *SendService) consume(ctx context.Context, scope, id string) error {
	if id == "" {
		id = "unknown"
	}
	d, err := s.Limiter.Check(ctx, scope, id)
	if err != nil {
		slogx.FromContext(ctx).Error("rate limit check failed", slog.String("scope", scope), slog.Any("error", err))
		return apperr.Internal(err)
	}
	if !d.Allowed {
		slogx.FromContext(ctx).Warn("send rate limited", slog.String("scope", scope), slog.Int("retry_after", d.RetryAfterSeconds))
		return apperr.RateLimit(apperr.CodeRateLimited, d.RetryAfterSeconds)
	}
	return nil
}

func (s *SendService) loadSnapshot(ctx context.Context, ownerID string, typ domain.DocumentType, id string) (snapshot, error) {
	var snap snapshot
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		doc, err := tx.Documents().GetDocument(ctx, ownerID, typ, id)
		if err != nil {
			return err
		}
		snap.doc = doc

		settings, err := tx.Settings().GetOwnerSettings(ctx, ownerID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		snap.settings = settings

		if doc.ClientID != "" {
			client, err := tx.Clients().GetClient(ctx, ownerID, doc.ClientID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
			snap.client = client
		}
		return nil
	})
	if err != nil {
		return snapshot{}, mapStoreErr(err, "document")
	}
	return snap, nil
}

// ContentDigest is the canonical digest of the recipient-visible content.
func ContentDigest(d *domain.Document) (string, error) {
	return cryptox.Digest(d.ContentView())
}

// checkDigest compares the fresh snapshot, and the client's inline copy
// when present, against the digest the client claims to hold.
func checkDigest(fresh, legacy *domain.Document, claimed string) error {
	stale := apperr.Conflict(apperr.CodeStaleDocument, "document changed since it was loaded; reload and try again")

	got, err := ContentDigest(fresh)
	if err != nil {
		return apperr.Internal(err)
	}
	if got != claimed {
		return stale
	}

	if legacy != nil {
		copyOf := *legacy
		if copyOf.Type == "" {
			copyOf.Type = fresh.Type
		}
		held, err := ContentDigest(&copyOf)
		if err != nil {
			return apperr.Internal(err)
		}
		if held != claimed {
			return stale
		}
	}
	return nil
}
