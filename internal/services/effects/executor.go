package effects

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"text/template"

	"github.com/magabrotheeeer/venture-billing/internal/lib/invoice"
	"github.com/magabrotheeeer/venture-billing/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/venture-billing/internal/lib/sl"
	"github.com/magabrotheeeer/venture-billing/internal/models"
	"github.com/magabrotheeeer/venture-billing/internal/services/sender"
)

// Store сохраняет записи аудита и уведомления.
type Store interface {
	InsertAuditLog(ctx context.Context, e models.AuditEntry) error
	InsertNotification(ctx context.Context, n models.Notification) error
}

// Mailer отправляет письма.
type Mailer interface {
	Send(ctx context.Context, m sender.Mail) error
}

type emailTemplate struct {
	subject *template.Template
	body    *template.Template
}

func mustTemplate(name, subject, body string) emailTemplate {
	return emailTemplate{
		subject: template.Must(template.New(name + ".subject").Option("missingkey=zero").Parse(subject)),
		body:    template.Must(template.New(name + ".body").Option("missingkey=zero").Parse(body)),
	}
}

var emailTemplates = map[string]emailTemplate{
	EmailPaymentReceipt: mustTemplate(EmailPaymentReceipt,
		"Payment received: {{.description}}",
		"Hello,\n\nWe received your payment of {{.amount}} {{.currency}} ({{.description}}).\n"+
			"Reference: {{.reference}}\n\nYour account has been updated.\n"),
	EmailManualPaymentReceived: mustTemplate(EmailManualPaymentReceived,
		"Your bank transfer was confirmed",
		"Hello,\n\nYour transfer of {{.amount}} {{.currency}} was confirmed by our finance team.\n"+
			"An invoice is attached to a separate email.\n"),
	EmailManualPaymentRejected: mustTemplate(EmailManualPaymentRejected,
		"Your bank transfer could not be confirmed",
		"Hello,\n\nWe could not confirm your transfer of {{.amount}} {{.currency}}.\n"+
			"Reason: {{.reason}}\n\nPlease contact support if you believe this is a mistake.\n"),
	EmailEarlyAccessWelcome: mustTemplate(EmailEarlyAccessWelcome,
		"Welcome to the early access cohort",
		"Hello,\n\nYou are founder #{{.signup_order}} of our early access cohort.\n"+
			"Your setup fee is waived while your enrollment is active.\n"),
}

// Executor выполняет задачи побочных эффектов, полученные из очередей.
type Executor struct {
	store  Store
	mailer Mailer
	issuer invoice.Issuer
	log    *slog.Logger
}

// NewExecutor создает Executor.
func NewExecutor(log *slog.Logger, store Store, mailer Mailer, issuer invoice.Issuer) *Executor {
	return &Executor{store: store, mailer: mailer, issuer: issuer, log: log}
}

// Handlers возвращает обработчики по типу задачи.
func (e *Executor) Handlers() map[models.TaskKind]rabbitmq.Handler {
	return map[models.TaskKind]rabbitmq.Handler{
		models.TaskAudit:   e.HandleAudit,
		models.TaskNotify:  e.HandleNotify,
		models.TaskEmail:   e.HandleEmail,
		models.TaskInvoice: e.HandleInvoice,
	}
}

// HandleAudit сохраняет запись аудита.
func (e *Executor) HandleAudit(ctx context.Context, body []byte) error {
	const op = "effects.HandleAudit"
	var entry models.AuditEntry
	if err := json.Unmarshal(body, &entry); err != nil {
		e.log.Error("dropping malformed audit task", sl.Err(err))
		return nil
	}
	if err := e.store.InsertAuditLog(ctx, entry); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// HandleNotify сохраняет уведомление.
func (e *Executor) HandleNotify(ctx context.Context, body []byte) error {
	const op = "effects.HandleNotify"
	var n models.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		e.log.Error("dropping malformed notification task", sl.Err(err))
		return nil
	}
	if err := e.store.InsertNotification(ctx, n); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// HandleEmail формирует письмо по шаблону и отправляет его.
func (e *Executor) HandleEmail(ctx context.Context, body []byte) error {
	const op = "effects.HandleEmail"
	var msg models.EmailMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		e.log.Error("dropping malformed email task", sl.Err(err))
		return nil
	}
	tpl, ok := emailTemplates[msg.Type]
	if !ok || msg.To == "" {
		e.log.Warn("dropping email task", slog.String("type", msg.Type), slog.Bool("has_recipient", msg.To != ""))
		return nil
	}
	subject, text, err := renderEmail(tpl, msg.TemplateData)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := e.mailer.Send(ctx, sender.Mail{To: []string{msg.To}, Subject: subject, Body: text}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// HandleInvoice генерирует PDF-счет и отправляет его вложением.
func (e *Executor) HandleInvoice(ctx context.Context, body []byte) error {
	const op = "effects.HandleInvoice"
	var req models.InvoiceRequest
	if err := json.Unmarshal(body, &req); err != nil {
		e.log.Error("dropping malformed invoice task", sl.Err(err))
		return nil
	}
	pdf, err := invoice.Render(e.issuer, req)
	if err != nil {
		e.log.Error("failed to render invoice", slog.String("number", req.Number), sl.Err(err))
		return nil
	}
	mail := sender.Mail{
		To:      []string{req.Email},
		Subject: "Invoice " + req.Number,
		Body: fmt.Sprintf("Hello,\n\nPlease find attached invoice %s for %s.\n",
			req.Number, invoice.FormatAmount(req)),
		Attachments: []sender.Attachment{{
			Name:        invoice.FileName(req.Number),
			ContentType: "application/pdf",
			Data:        pdf,
		}},
	}
	if err := e.mailer.Send(ctx, mail); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	e.log.Info("invoice sent", slog.String("number", req.Number), slog.String("user_id", req.UserID))
	return nil
}

func renderEmail(tpl emailTemplate, data map[string]string) (string, string, error) {
	var subject, body bytes.Buffer
	if err := tpl.subject.Execute(&subject, data); err != nil {
		return "", "", err
	}
	if err := tpl.body.Execute(&body, data); err != nil {
		return "", "", err
	}
	return subject.String(), body.String(), nil
}
