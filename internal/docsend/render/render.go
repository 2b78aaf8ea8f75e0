// Package render turns a document snapshot into a printable PDF.
package render

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/docsend/internal/docsend/domain"
)

var (
	// ErrNotConfigured is returned by Open when rendering is disabled.
	ErrNotConfigured = errors.New("render: not configured")
	// ErrClosed is returned by Render after Close.
	ErrClosed = errors.New("render: engine closed")
)

// Input is everything that ends up on the page.
type Input struct {
	Document domain.Document
	Client   domain.Client
	Settings domain.OwnerSettings
	Sender   domain.SenderIdentity
}

// Artifact is a rendered document.
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

type Renderer interface {
	Render(ctx context.Context, in Input) (Artifact, error)
}

const maxFilenameLen = 120

// Filename derives <type>_<number>_<client>_<date>.pdf from the snapshot.
// Characters outside [A-Za-z0-9._-] become underscores.
func Filename(d *domain.Document, clientName string, now time.Time) string {
	number := d.Number
	if number == "" {
		number = "draft"
	}
	date := now
	if d.IssueDate != nil {
		date = *d.IssueDate
	}
	client := clientName
	if client == "" {
		client = "client"
	}

	stem := sanitize(fmt.Sprintf("%s_%s_%s_%s", d.Type, number, client, date.UTC().Format(domain.DateLayout)))
	const ext = ".pdf"
	if len(stem) > maxFilenameLen-len(ext) {
		stem = stem[:maxFilenameLen-len(ext)]
	}
	return stem + ext
}

func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastUnderscore := false
	for _, r := range s {
		ok := r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '.' || r == '-' || r == '_'
		if !ok {
			r = '_'
		}
		if r == '_' && lastUnderscore {
			continue
		}
		lastUnderscore = r == '_'
		b.WriteRune(r)
	}
	return strings.Trim(b.String(), "_.")
}
