package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/cartrecovery/internal/model"
)

// InsertMailTemplate writes a mail template, ignoring duplicates.
func (s *Store) InsertMailTemplate(ctx context.Context, t model.MailTemplate) error {
	fields, err := marshalFields(t.CustomFields)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO mail_template (id, sender_name, subject, content_html, content_plain, custom_fields)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, t.ID, t.SenderName, t.Subject, t.ContentHTML, t.ContentPlain, fields)
	if err != nil {
		return fmt.Errorf("insert mail template %s: %w", t.ID, err)
	}
	return nil
}

// GetMailTemplate returns one mail template.
func (s *Store) GetMailTemplate(ctx context.Context, id string) (*model.MailTemplate, error) {
	var (
		t      model.MailTemplate
		fields string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, sender_name, subject, content_html, content_plain, custom_fields
		FROM mail_template WHERE id = ?
	`, id).Scan(&t.ID, &t.SenderName, &t.Subject, &t.ContentHTML, &t.ContentPlain, &fields)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("mail template %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get mail template %s: %w", id, err)
	}
	if t.CustomFields, err = unmarshalFields(fields); err != nil {
		return nil, fmt.Errorf("mail template %s: %w", id, err)
	}
	return &t, nil
}

// EnqueueMail appends a rendered mail to the outbox.
func (s *Store) EnqueueMail(ctx context.Context, m model.OutboxMail) error {
	recipients, err := marshalJSON(m.Recipients)
	if err != nil {
		return fmt.Errorf("marshal recipients: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO mail_outbox
		(id, recipients, sender_name, sender_mail, subject, content_html, content_plain, sales_channel_id, template_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		m.ID,
		recipients,
		m.SenderName,
		m.SenderMail,
		m.Subject,
		m.ContentHTML,
		m.ContentPlain,
		m.SalesChannelID,
		m.TemplateID,
		toMillis(m.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("enqueue mail %s: %w", m.ID, err)
	}
	return nil
}

// Outbox returns queued mails oldest first.
func (s *Store) Outbox(ctx context.Context) ([]model.OutboxMail, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, recipients, sender_name, sender_mail, subject, content_html, content_plain,
		       sales_channel_id, template_id, created_at
		FROM mail_outbox
		ORDER BY created_at ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	mails := []model.OutboxMail{}
	for rows.Next() {
		var (
			m          model.OutboxMail
			recipients string
			createdAt  int64
		)
		if err := rows.Scan(&m.ID, &recipients, &m.SenderName, &m.SenderMail, &m.Subject, &m.ContentHTML,
			&m.ContentPlain, &m.SalesChannelID, &m.TemplateID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan outbox mail: %w", err)
		}
		if err := json.Unmarshal([]byte(recipients), &m.Recipients); err != nil {
			return nil, fmt.Errorf("outbox mail %s: unmarshal recipients: %w", m.ID, err)
		}
		m.CreatedAt = fromMillis(createdAt)
		mails = append(mails, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return mails, nil
}
