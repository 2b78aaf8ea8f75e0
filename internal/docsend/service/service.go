// Package service holds the business operations: sender identity
// verification, the document send pipeline, gated document transitions and
// the audit trail.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/docsend/internal/docsend/apperr"
	"github.com/aussiebroadwan/docsend/internal/docsend/lifecycle"
	"github.com/aussiebroadwan/docsend/internal/docsend/mail"
	"github.com/aussiebroadwan/docsend/internal/docsend/render"
	"github.com/aussiebroadwan/docsend/internal/docsend/store"
)

// RendererSource hands out the shared renderer, creating it on first use.
type RendererSource func(ctx context.Context) (render.Renderer, error)

// TransportSource hands out the shared mail transport, creating it on first use.
type TransportSource func(ctx context.Context) (mail.Transport, error)

// Metrics receives business outcomes. A nil Metrics records nothing.
type Metrics interface {
	SendFinished(docType, result string)
	VerificationFinished(outcome string)
}

type noopMetrics struct{}

func (noopMetrics) SendFinished(string, string) {}
func (noopMetrics) VerificationFinished(string) {}

func metricsOrNoop(m Metrics) Metrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}

// Platform is the address every message is sent from.
type Platform struct {
	Name  string
	Email string
	// VerifyURL is the public verification endpoint the token is appended to.
	VerifyURL string
}

func nowFrom(clock func() time.Time) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock().UTC()
}

func today(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// mapStoreErr turns store sentinels into taxonomy errors.
func mapStoreErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound(what)
	case errors.Is(err, store.ErrConflict), errors.Is(err, store.ErrAlreadyExists):
		return &apperr.Error{Kind: apperr.KindConflict, Code: apperr.CodeOperationNotPermitted, Message: what + " changed concurrently", Err: err}
	default:
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return ae
		}
		return apperr.Internal(err)
	}
}

// mapLifecycleErr turns guard failures into conflicts.
func mapLifecycleErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, lifecycle.ErrLocked):
		return &apperr.Error{Kind: apperr.KindConflict, Code: apperr.CodeDocumentLocked, Message: "document is locked", Err: err}
	case errors.Is(err, lifecycle.ErrIncomplete):
		return &apperr.Error{Kind: apperr.KindConflict, Code: apperr.CodeOperationNotPermitted, Message: err.Error(), Err: err}
	default:
		return &apperr.Error{Kind: apperr.KindConflict, Code: apperr.CodeOperationNotPermitted, Message: "operation not permitted in the current phase", Err: err}
	}
}

// collaboratorErr classifies a failure to obtain or use a lazily created
// collaborator.
func collaboratorErr(what string, err error) error {
	if errors.Is(err, render.ErrNotConfigured) || errors.Is(err, mail.ErrNotConfigured) {
		return apperr.NotConfigured(what, err)
	}
	return apperr.Upstream(what, err)
}
