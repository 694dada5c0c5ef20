// Package mail renders mail templates and hands the result to the outbox.
package mail

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	"maps"
	texttemplate "text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	"golang.org/x/text/language"

	"github.com/roach88/cartrecovery/internal/logger"
	"github.com/roach88/cartrecovery/internal/model"
)

// Outbox accepts rendered mails for delivery.
type Outbox interface {
	EnqueueMail(ctx context.Context, m model.OutboxMail) error
}

// Service renders templated mails. It satisfies action.Mailer.
type Service struct {
	outbox Outbox
	ids    model.IDGenerator
	now    func() time.Time
	lang   language.Tag
	log    logger.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithIDGenerator sets the generator for outbox row IDs.
func WithIDGenerator(ids model.IDGenerator) Option {
	return func(s *Service) { s.ids = ids }
}

// WithNow sets the clock used for outbox timestamps.
func WithNow(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLanguage sets the language used by the money template function.
func WithLanguage(tag language.Tag) Option {
	return func(s *Service) { s.lang = tag }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

// NewService returns a Service writing to outbox.
func NewService(outbox Outbox, opts ...Option) *Service {
	s := &Service{
		outbox: outbox,
		ids:    model.UUIDv7Generator{},
		now:    time.Now,
		lang:   language.English,
		log:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send renders subject, plain and HTML bodies of msg with data and queues
// the result. Template custom fields are exposed to the templates as
// .customFields; keys in data take precedence.
func (s *Service) Send(ctx context.Context, msg model.MailMessage, data map[string]any) error {
	if len(msg.Recipients) == 0 {
		return fmt.Errorf("mail %s: no recipients", msg.TemplateID)
	}

	vars := map[string]any{"customFields": msg.CustomFields}
	maps.Copy(vars, data)
	funcs := s.funcs()

	subject, err := renderText("subject", msg.Subject, vars, funcs)
	if err != nil {
		return fmt.Errorf("mail %s: %w", msg.TemplateID, err)
	}
	plain, err := renderText("contentPlain", msg.ContentPlain, vars, funcs)
	if err != nil {
		return fmt.Errorf("mail %s: %w", msg.TemplateID, err)
	}
	html, err := renderHTML("contentHtml", msg.ContentHTML, vars, funcs)
	if err != nil {
		return fmt.Errorf("mail %s: %w", msg.TemplateID, err)
	}

	out := model.OutboxMail{
		ID:             s.ids.Generate(),
		Recipients:     msg.Recipients,
		SenderName:     msg.SenderName,
		SenderMail:     msg.SenderMail,
		Subject:        subject,
		ContentHTML:    html,
		ContentPlain:   plain,
		SalesChannelID: msg.SalesChannelID,
		TemplateID:     msg.TemplateID,
		CreatedAt:      s.now().UTC().Truncate(time.Millisecond),
	}
	if err := s.outbox.EnqueueMail(ctx, out); err != nil {
		return err
	}
	s.log.Debug("mail queued", "mailId", out.ID, "templateId", msg.TemplateID)
	return nil
}

func (s *Service) funcs() map[string]any {
	funcs := sprig.FuncMap()
	funcs["money"] = moneyFunc(s.lang)
	return funcs
}

func renderText(name, src string, vars map[string]any, funcs map[string]any) (string, error) {
	tpl, err := texttemplate.New(name).Funcs(funcs).Parse(src)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func renderHTML(name, src string, vars map[string]any, funcs map[string]any) (string, error) {
	tpl, err := htmltemplate.New(name).Funcs(funcs).Parse(src)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
