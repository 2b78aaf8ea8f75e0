package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aussiebroadwan/docsend/internal/docsend/mail"
	"github.com/aussiebroadwan/docsend/internal/docsend/render"
	"github.com/aussiebroadwan/docsend/pkg/syncx"
)

// resources holds the process-wide collaborators that are created on first
// use. A missing configuration is sticky, so it is logged once.
type resources struct {
	logger *slog.Logger

	engine    *syncx.Lazy[*render.PDFEngine]
	transport *syncx.Lazy[*mail.SMTPTransport]
}

func notConfigured(err error) bool {
	return errors.Is(err, render.ErrNotConfigured) || errors.Is(err, mail.ErrNotConfigured)
}

func newResources(cfg Config, logger *slog.Logger) *resources {
	res := &resources{logger: logger}

	res.engine = syncx.NewLazy(func(context.Context) (*render.PDFEngine, error) {
		e, err := render.Open(render.Config{Concurrency: cfg.RenderConcurrency})
		if err != nil {
			return nil, res.report("pdf engine", err)
		}
		logger.Info("pdf engine ready", slog.Int("concurrency", cfg.RenderConcurrency))
		return e, nil
	}, syncx.Sticky(notConfigured))

	res.transport = syncx.NewLazy(func(context.Context) (*mail.SMTPTransport, error) {
		t, err := mail.OpenSMTP(cfg.SMTP)
		if err != nil {
			return nil, res.report("smtp transport", err)
		}
		logger.Info("smtp transport ready", slog.String("host", cfg.SMTP.Host), slog.Int("port", cfg.SMTP.Port))
		return t, nil
	}, syncx.Sticky(notConfigured))

	return res
}

func (r *resources) report(what string, err error) error {
	if notConfigured(err) {
		r.logger.Warn(what+" is not configured", slog.Any("error", err))
		return err
	}
	r.logger.Error(what+" initialisation failed", slog.Any("error", err))
	return err
}

func (r *resources) Renderer(ctx context.Context) (render.Renderer, error) {
	e, err := r.engine.Get(ctx)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *resources) Transport(ctx context.Context) (mail.Transport, error) {
	t, err := r.transport.Get(ctx)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Close tears down whatever was created.
func (r *resources) Close() error {
	if e, ok := r.engine.Peek(); ok {
		return e.Close()
	}
	return nil
}
