package service

import (
	"net/url"
	"strings"

	"github.com/aussiebroadwan/docsend/internal/docsend/domain"
	"github.com/aussiebroadwan/docsend/internal/docsend/mail"
	"github.com/aussiebroadwan/docsend/internal/docsend/render"
)

// fromFor shows the user's name while the envelope stays on the platform
// address; replies go to the user through Reply-To.
func fromFor(p Platform, si domain.SenderIdentity) mail.Address {
	name := si.DisplayName
	if name == "" {
		name = si.Email
	}
	if p.Name != "" {
		name += " via " + p.Name
	}
	return mail.Address{Name: name, Email: p.Email}
}

func documentMail(p Platform, si domain.SenderIdentity, settings domain.OwnerSettings, to, subject, message string, art render.Artifact) mail.Message {
	var body strings.Builder
	body.WriteString(strings.TrimSpace(message))
	if sig := strings.TrimSpace(settings.EmailSignature); sig != "" {
		body.WriteString("\n\n-- \n")
		body.WriteString(sig)
	}
	return mail.Message{
		From:    fromFor(p, si),
		To:      []string{to},
		ReplyTo: si.Email,
		Subject: subject,
		Text:    body.String(),
		Attachments: []mail.Attachment{{
			Filename:    art.Filename,
			ContentType: art.ContentType,
			Data:        art.Data,
		}},
	}
}

func verificationLink(base, rawToken string) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "token=" + url.QueryEscape(rawToken)
}

func verificationMail(p Platform, si domain.SenderIdentity, link string) mail.Message {
	name := si.DisplayName
	if name == "" {
		name = "there"
	}
	var b strings.Builder
	b.WriteString("Hi " + name + ",\n\n")
	b.WriteString("please confirm that documents may be sent on behalf of " + si.Email + " by opening this link within 24 hours:\n\n")
	b.WriteString(link + "\n\n")
	b.WriteString("Replies to those documents will be delivered to this address. If you did not ask for this, ignore this message.\n")

	platform := p.Name
	if platform == "" {
		platform = "your invoicing account"
	}
	return mail.Message{
		From:    mail.Address{Name: p.Name, Email: p.Email},
		To:      []string{si.Email},
		Subject: "Confirm your sender address for " + platform,
		Text:    b.String(),
	}
}
