package service

import (
	"bytes"
	"fmt"
	"sync"
	"text/template"
	"time"

	"go.uber.org/zap"

	"gameshop-hub/internal/event"
	"gameshop-hub/internal/metrics"
	"gameshop-hub/internal/model"
	"gameshop-hub/pkg/mailer"
	tplfs "gameshop-hub/templates"
)

type NotificationTemplate string

const (
	NotificationOrderConfirmation NotificationTemplate = "order_confirmation"
	NotificationOrderStatusUpdate NotificationTemplate = "order_status_update"
	NotificationCreditAwarded     NotificationTemplate = "credit_awarded"
)

var notificationTemplateFiles = map[NotificationTemplate]string{
	NotificationOrderConfirmation: "emails/order_confirmation.tmpl",
	NotificationOrderStatusUpdate: "emails/order_status_update.tmpl",
	NotificationCreditAwarded:     "emails/credit_awarded.tmpl",
}

// NotificationService renders email templates and delivers them in the
// background. Delivery failures never propagate to the request path.
type NotificationService struct {
	mail       *mailer.Client
	logger     *zap.Logger
	templateMu sync.RWMutex
	templates  map[NotificationTemplate]*template.Template
}

func NewNotificationService(mail *mailer.Client, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &NotificationService{
		mail:      mail,
		logger:    logger,
		templates: make(map[NotificationTemplate]*template.Template),
	}
}

// SubscribeToBus wires delivery to the domain events.
func (s *NotificationService) SubscribeToBus(bus *event.Bus) {
	if bus == nil {
		return
	}

	bus.Subscribe(event.EventOrderCreated, func(payload any) {
		if p, ok := payload.(event.OrderPayload); ok {
			s.SendOrderConfirmation(p)
		}
	})
	bus.Subscribe(event.EventOrderConfirmed, func(payload any) {
		if p, ok := payload.(event.OrderPayload); ok {
			s.SendOrderStatusUpdate(p)
		}
	})
	bus.Subscribe(event.EventOrderCompleted, func(payload any) {
		if p, ok := payload.(event.OrderPayload); ok {
			s.SendOrderStatusUpdate(p)
		}
	})
}

func (s *NotificationService) SendOrderConfirmation(p event.OrderPayload) {
	if p.CustomerEmail == "" {
		return
	}

	s.sendAsync(p.CustomerEmail, NotificationOrderConfirmation, map[string]string{
		"OrderID":      p.OrderID,
		"CustomerName": "there",
		"ItemsText":    "",
		"TotalAmount":  p.TotalAmount.StringFixed(2),
	})
}

func (s *NotificationService) SendOrderConfirmationFor(order *model.Order) {
	if order == nil || order.CustomerEmail == nil {
		return
	}

	vars := map[string]string{
		"OrderID":      order.ID.String(),
		"CustomerName": order.CustomerName,
		"ItemsText":    order.ItemsText,
		"TotalAmount":  order.TotalAmount.StringFixed(2),
	}
	if order.CreditsUsed.Sign() > 0 {
		vars["CreditsUsed"] = order.CreditsUsed.StringFixed(2)
	}
	s.sendAsync(*order.CustomerEmail, NotificationOrderConfirmation, vars)
}

func (s *NotificationService) SendOrderStatusUpdate(p event.OrderPayload) {
	if p.CustomerEmail == "" {
		return
	}

	s.sendAsync(p.CustomerEmail, NotificationOrderStatusUpdate, map[string]string{
		"OrderID":      p.OrderID,
		"CustomerName": "there",
		"Status":       p.Status,
	})
}

func (s *NotificationService) SendCreditAwarded(p event.CreditAwardedPayload) {
	if p.CustomerEmail == "" {
		return
	}

	s.sendAsync(p.CustomerEmail, NotificationCreditAwarded, map[string]string{
		"Amount":  p.Amount.StringFixed(2),
		"Kind":    p.Kind,
		"Balance": p.BalanceAfter.StringFixed(2),
	})
}

func (s *NotificationService) sendAsync(to string, templateName NotificationTemplate, vars map[string]string) {
	if s.mail == nil || !s.mail.Configured() {
		return
	}

	rendered, err := s.renderTemplate(templateName, vars)
	if err != nil {
		s.logger.Error("render notification template failed",
			zap.String("template", string(templateName)),
			zap.Error(err),
		)
		return
	}

	go func() {
		retryDelays := []time.Duration{0, 5 * time.Second, 30 * time.Second}
		var sendErr error
		for i, delay := range retryDelays {
			if i > 0 {
				time.Sleep(delay)
			}
			startedAt := time.Now()
			sendErr = s.mail.Send(to, rendered)
			if sendErr == nil {
				metrics.ObserveEmailSendDuration(time.Since(startedAt))
				return
			}
		}

		metrics.IncEmailSendError()
		s.logger.Error("send email notification failed",
			zap.String("to", to),
			zap.String("template", string(templateName)),
			zap.Error(sendErr),
		)
	}()
}

func (s *NotificationService) renderTemplate(
	templateName NotificationTemplate,
	vars map[string]string,
) (string, error) {
	tpl, err := s.loadTemplate(templateName)
	if err != nil {
		return "", err
	}

	buf := bytes.NewBuffer(nil)
	if err := tpl.Execute(buf, vars); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *NotificationService) loadTemplate(name NotificationTemplate) (*template.Template, error) {
	s.templateMu.RLock()
	if tpl, ok := s.templates[name]; ok {
		s.templateMu.RUnlock()
		return tpl, nil
	}
	s.templateMu.RUnlock()

	file, ok := notificationTemplateFiles[name]
	if !ok {
		return nil, fmt.Errorf("notification template not found: %s", name)
	}

	raw, err := tplfs.EmailTemplateFS.ReadFile(file)
	if err != nil {
		return nil, err
	}

	tpl, err := template.New(file).Parse(string(raw))
	if err != nil {
		return nil, err
	}

	s.templateMu.Lock()
	s.templates[name] = tpl
	s.templateMu.Unlock()
	return tpl, nil
}
