package collections

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/emiliofantozzi/cobra/internal/application/dto"
	"github.com/emiliofantozzi/cobra/internal/application/ports"
	"github.com/emiliofantozzi/cobra/internal/domain"
	domcollections "github.com/emiliofantozzi/cobra/internal/domain/collections"
	"github.com/emiliofantozzi/cobra/internal/domain/entity"
	"github.com/emiliofantozzi/cobra/internal/domain/repository"
)

const (
	// classifyTimeout tope de la llamada al clasificador de respuestas.
	classifyTimeout = 20 * time.Second
	// minIntentConfidence por debajo de esta confianza la clasificación solo se registra.
	minIntentConfidence = 0.6
)

// SendCommunication envía un mensaje a un contacto del caso.
// El intento queda persistido en PENDING antes de llamar al proveedor; si el transporte falla,
// el intento se guarda FAILED y se devuelve sin error.
func (s *Service) SendCommunication(ctx context.Context, rc repository.RepositoryContext, in dto.SendCommunicationRequest) (*entity.CommunicationAttempt, error) {
	channel := entity.Channel(strings.ToUpper(in.Channel))
	var (
		attempt *entity.CommunicationAttempt
		contact *entity.Contact
		inv     *entity.Invoice
		action  *entity.AgentActionLog
	)
	err := s.tx.Run(ctx, func(r Repositories) error {
		c, err := loadCase(ctx, r, rc, in.CollectionCaseID)
		if err != nil {
			return err
		}
		if c.IsClosed() {
			return domain.Invalid(domain.ErrCaseInvalidStatusTransition, "caso %s cerrado", c.ID)
		}
		if inv, err = r.Invoices.GetByID(ctx, rc, c.InvoiceID); err != nil {
			return fmt.Errorf("obtener factura: %w", err)
		}
		if inv == nil {
			return notFound("factura", c.InvoiceID)
		}
		if contact, err = loadContact(ctx, r, rc, in.ContactID); err != nil {
			return err
		}
		if contact.CustomerCompanyID != inv.CustomerCompanyID {
			return notFound("contacto", in.ContactID)
		}
		if !contact.HasChannel(channel) {
			return domain.Invalid(domain.ErrCommunicationInvalidChannel, "el contacto no tiene %s", channel)
		}
		if !contact.CanReceive(channel) {
			return domain.Invalid(domain.ErrCommunicationOptedOut, "%s", channel)
		}
		now := s.clock.Now()
		draft, err := entity.NewCommunicationAttempt(entity.CommunicationAttemptDraft{
			ID:               s.newID(),
			OrganizationID:   rc.OrganizationID,
			CollectionCaseID: c.ID,
			ContactID:        contact.ID,
			Channel:          channel,
			Direction:        entity.DirectionOutbound,
			Subject:          in.Subject,
			Body:             in.Body,
		}, now)
		if err != nil {
			return err
		}
		pending, err := domcollections.MarkCommunicationPending(*draft, now)
		if err != nil {
			return err
		}
		if err := r.Communications.Create(ctx, rc, &pending); err != nil {
			return fmt.Errorf("crear comunicación: %w", err)
		}
		attempt = &pending
		if in.AgentRunID != "" {
			action, err = s.appendAction(ctx, r, rc, in.AgentRunID, c, domcollections.ActionDraft{
				Type:    entity.ActionSendMessage,
				Status:  entity.ActionInProgress,
				Summary: fmt.Sprintf("envío por %s", channel),
				Payload: entity.SendMessagePayload{CommunicationAttemptID: pending.ID, ContactID: contact.ID, Channel: channel},
			}, now)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	msg := ports.OutboundMessage{
		AttemptID:      attempt.ID,
		OrganizationID: rc.OrganizationID,
		Channel:        channel,
		To:             contact.Address(channel),
		ToName:         contact.FullName(),
		Subject:        attempt.Subject,
		Body:           attempt.Body,
	}
	if in.AttachStatement && channel == entity.ChannelEmail {
		if file, err := s.renderStatement(ctx, rc, inv.CustomerCompanyID, contact); err != nil {
			s.log.Warn().Err(err).Str("collection_case_id", in.CollectionCaseID).Msg("no se adjuntó el estado de cuenta")
		} else {
			msg.Attachments = append(msg.Attachments, *file)
		}
	}
	receipt, sendErr := s.send(ctx, msg)

	ev := s.batch(rc)
	err = s.tx.Run(ctx, func(r Repositories) error {
		cur, err := r.Communications.GetByID(ctx, rc, attempt.ID)
		if err != nil {
			return fmt.Errorf("obtener comunicación: %w", err)
		}
		if cur == nil {
			return notFound("comunicación", attempt.ID)
		}
		now := s.clock.Now()
		var updated entity.CommunicationAttempt
		if sendErr != nil {
			if updated, err = domcollections.MarkCommunicationAsFailed(*cur, sendErr.Error(), now); err != nil {
				return err
			}
			ev.add(ports.EventCommunicationFailed, updated.ID, map[string]any{
				"collection_case_id": updated.CollectionCaseID,
				"channel":            updated.Channel,
				"error":              updated.Error,
			})
		} else {
			sentAt := receipt.SentAt
			if sentAt.IsZero() {
				sentAt = now
			}
			if updated, err = domcollections.MarkCommunicationAsSent(*cur, domcollections.SendResult{SentAt: sentAt, DeliveredAt: receipt.DeliveredAt}); err != nil {
				return err
			}
			if updated, err = domcollections.AppendDeliveryMetadata(updated, receipt.ExternalID, receipt.Metadata, now); err != nil {
				return err
			}
			if err := touchCase(ctx, r, rc, updated.CollectionCaseID, func(c *entity.CollectionCase) {
				c.LastCommunicationAt = &sentAt
				if c.PrimaryContactID == "" {
					c.PrimaryContactID = updated.ContactID
				}
			}, now); err != nil {
				return err
			}
			ev.add(ports.EventCommunicationSent, updated.ID, map[string]any{
				"collection_case_id": updated.CollectionCaseID,
				"channel":            updated.Channel,
				"external_id":        updated.ExternalID,
			})
		}
		if err := r.Communications.Update(ctx, rc, &updated); err != nil {
			return fmt.Errorf("actualizar comunicación: %w", err)
		}
		if action != nil {
			status := entity.ActionSucceeded
			if sendErr != nil {
				status = entity.ActionFailed
			}
			if err := finishAction(ctx, r, rc, action.ID, status, updated.Error, now); err != nil {
				return err
			}
		}
		attempt = &updated
		return nil
	})
	if err != nil {
		s.log.Error().Err(err).Str("communication_attempt_id", attempt.ID).Msg("no se pudo registrar el resultado del envío")
		return nil, err
	}
	s.publish(ctx, ev)
	s.log.Info().
		AnErr("transport_error", sendErr).
		Str("organization_id", rc.OrganizationID).
		Str("communication_attempt_id", attempt.ID).
		Str("channel", string(channel)).
		Str("status", string(attempt.Status)).
		Msg("comunicación procesada")
	return attempt, nil
}

// send entrega el mensaje al transporte configurado.
func (s *Service) send(ctx context.Context, msg ports.OutboundMessage) (*ports.SendReceipt, error) {
	if s.sender == nil {
		return nil, domain.Invalid(domain.ErrTransport, "sin transporte para %s", msg.Channel)
	}
	receipt, err := s.sender.Send(ctx, msg)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		receipt = &ports.SendReceipt{}
	}
	return receipt, nil
}

// RecordDeliveryReceipt aplica el estado de entrega informado por el proveedor (webhook).
func (s *Service) RecordDeliveryReceipt(ctx context.Context, rc repository.RepositoryContext, in dto.DeliveryReceiptRequest) (*entity.CommunicationAttempt, error) {
	ev := s.batch(rc)
	var out *entity.CommunicationAttempt
	err := s.tx.Run(ctx, func(r Repositories) error {
		a, err := r.Communications.GetByExternalID(ctx, rc, in.ExternalID)
		if err != nil {
			return fmt.Errorf("obtener comunicación: %w", err)
		}
		if a == nil {
			return notFound("comunicación externa", in.ExternalID)
		}
		now := s.clock.Now()
		at := now
		if in.OccurredAt != nil {
			at = *in.OccurredAt
		}
		var updated entity.CommunicationAttempt
		switch strings.ToUpper(in.Status) {
		case "SENT":
			updated, err = domcollections.MarkCommunicationAsSent(*a, domcollections.SendResult{SentAt: at})
		case "DELIVERED":
			updated, err = domcollections.MarkCommunicationAsSent(*a, domcollections.SendResult{SentAt: at, DeliveredAt: &at})
		case "READ":
			updated, err = domcollections.MarkCommunicationAsRead(*a, at)
		case "FAILED":
			updated, err = domcollections.MarkCommunicationAsFailed(*a, in.Error, at)
			if err == nil && a.Status != entity.CommunicationStatusFailed {
				ev.add(ports.EventCommunicationFailed, a.ID, map[string]any{"collection_case_id": a.CollectionCaseID, "error": in.Error})
			}
		default:
			return domain.Invalid(domain.ErrInvalidInput, "estado de entrega %q", in.Status)
		}
		if err != nil {
			return err
		}
		if len(in.Metadata) > 0 {
			if updated, err = domcollections.AppendDeliveryMetadata(updated, "", in.Metadata, now); err != nil {
				return err
			}
		}
		if err := r.Communications.Update(ctx, rc, &updated); err != nil {
			return fmt.Errorf("actualizar comunicación: %w", err)
		}
		out = &updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, ev)
	return out, nil
}

// RecordInboundReply registra la respuesta del deudor como intento INBOUND, la clasifica y aplica
// sus efectos: promesa de pago, revisión manual (ya pagó o disputa) o baja del canal.
func (s *Service) RecordInboundReply(ctx context.Context, rc repository.RepositoryContext, in dto.InboundReplyRequest) (*dto.InboundReplyResponse, error) {
	channel := entity.Channel(strings.ToUpper(in.Channel))
	receivedAt := s.clock.Now()
	if in.ReceivedAt != nil {
		receivedAt = *in.ReceivedAt
	}
	ev := s.batch(rc)
	var (
		inbound *entity.CommunicationAttempt
		inv     *entity.Invoice
		c       *entity.CollectionCase
	)
	err := s.tx.Run(ctx, func(r Repositories) error {
		var err error
		if c, err = loadCase(ctx, r, rc, in.CollectionCaseID); err != nil {
			return err
		}
		if inv, err = r.Invoices.GetByID(ctx, rc, c.InvoiceID); err != nil {
			return fmt.Errorf("obtener factura: %w", err)
		}
		if inv == nil {
			return notFound("factura", c.InvoiceID)
		}
		contactID := in.ContactID
		if contactID == "" {
			contactID = c.PrimaryContactID
		}
		if contactID != "" {
			contact, err := loadContact(ctx, r, rc, contactID)
			if err != nil {
				return err
			}
			if contact.CustomerCompanyID != inv.CustomerCompanyID {
				return notFound("contacto", contactID)
			}
		}
		now := s.clock.Now()
		draft, err := entity.NewCommunicationAttempt(entity.CommunicationAttemptDraft{
			ID:               s.newID(),
			OrganizationID:   rc.OrganizationID,
			CollectionCaseID: c.ID,
			ContactID:        contactID,
			Channel:          channel,
			Direction:        entity.DirectionInbound,
			Subject:          in.Subject,
			Body:             in.Body,
		}, now)
		if err != nil {
			return err
		}
		received, err := domcollections.MarkCommunicationAsSent(*draft, domcollections.SendResult{SentAt: receivedAt, DeliveredAt: &receivedAt})
		if err != nil {
			return err
		}
		if in.ExternalID != "" {
			received.ExternalID = in.ExternalID
		}
		if err := r.Communications.Create(ctx, rc, &received); err != nil {
			return fmt.Errorf("crear comunicación: %w", err)
		}
		inbound = &received
		if err := acknowledgeLastOutbound(ctx, r, rc, c.ID, now); err != nil {
			return err
		}
		if err := touchCase(ctx, r, rc, c.ID, func(cc *entity.CollectionCase) { cc.LastCommunicationAt = &receivedAt }, now); err != nil {
			return err
		}
		ev.add(ports.EventCommunicationReceived, received.ID, map[string]any{"collection_case_id": c.ID, "channel": channel})
		return nil
	})
	if err != nil {
		return nil, err
	}

	cls := s.classify(ctx, rc, in, inv)
	if cls != nil {
		err = s.tx.Run(ctx, func(r Repositories) error {
			updatedCase, err := s.applyClassification(ctx, r, rc, inbound.ID, in.AgentRunID, cls, ev)
			if err != nil {
				return err
			}
			c = updatedCase
			return nil
		})
		if err != nil {
			s.log.Error().Err(err).Str("communication_attempt_id", inbound.ID).Msg("no se pudo aplicar la clasificación")
			return nil, err
		}
	}
	s.publish(ctx, ev)

	resp := &dto.InboundReplyResponse{Attempt: inbound, Classification: cls, Case: c}
	if a, err := s.repos.Communications.GetByID(ctx, rc, inbound.ID); err == nil && a != nil {
		resp.Attempt = a
	}
	if cur, err := s.repos.Cases.GetByID(ctx, rc, c.ID); err == nil && cur != nil {
		resp.Case = cur
	}
	return resp, nil
}

// classify llama al clasificador con timeout. Un fallo deja la respuesta sin clasificar.
func (s *Service) classify(ctx context.Context, rc repository.RepositoryContext, in dto.InboundReplyRequest, inv *entity.Invoice) *dto.ReplyClassificationDTO {
	if s.classifier == nil {
		return nil
	}
	today, err := s.localNow(ctx, s.repos, rc)
	if err != nil {
		today = s.clock.Now()
	}
	cctx, cancel := context.WithTimeout(ctx, classifyTimeout)
	defer cancel()
	cls, err := s.classifier.ClassifyReply(cctx, dto.ReplyClassificationInput{
		Channel:       strings.ToUpper(in.Channel),
		Subject:       in.Subject,
		Body:          in.Body,
		InvoiceNumber: inv.Number,
		Currency:      inv.Currency,
		Outstanding:   inv.OutstandingAmount,
		DueDate:       inv.DueDate,
		Today:         entity.DateOf(today),
	})
	if err != nil {
		s.log.Warn().Err(err).Str("collection_case_id", in.CollectionCaseID).Msg("clasificación de respuesta no disponible")
		return nil
	}
	return cls
}

// applyClassification guarda la clasificación en el intento entrante, lo marca atendido y aplica la intención
// cuando la confianza alcanza el mínimo y el caso sigue abierto.
func (s *Service) applyClassification(ctx context.Context, r Repositories, rc repository.RepositoryContext, attemptID, runID string, cls *dto.ReplyClassificationDTO, ev *eventBatch) (*entity.CollectionCase, error) {
	a, err := r.Communications.GetByID(ctx, rc, attemptID)
	if err != nil {
		return nil, fmt.Errorf("obtener comunicación: %w", err)
	}
	if a == nil {
		return nil, notFound("comunicación", attemptID)
	}
	c, err := loadCase(ctx, r, rc, a.CollectionCaseID)
	if err != nil {
		return nil, err
	}
	now, err := s.localNow(ctx, r, rc)
	if err != nil {
		return nil, err
	}
	payload, err := withClassification(a.Payload, cls)
	if err != nil {
		return nil, err
	}
	a.Payload = payload
	acked, err := domcollections.AcknowledgeCommunication(*a, now)
	if err != nil {
		return nil, err
	}
	if err := r.Communications.Update(ctx, rc, &acked); err != nil {
		return nil, fmt.Errorf("actualizar comunicación: %w", err)
	}

	intent := parseIntent(cls.Intent)
	var promise *time.Time
	if cls.PromiseDate != "" {
		if d, err := dto.ParseDate(cls.PromiseDate); err == nil {
			promise = &d
		}
	}
	if !c.IsClosed() && cls.Confidence >= minIntentConfidence {
		switch intent {
		case entity.IntentPromiseToPay:
			if promise != nil && !entity.DateOf(*promise).Before(entity.DateOf(now)) {
				inv, err := loadInvoiceForUpdate(ctx, r, rc, c.InvoiceID)
				if err != nil {
					return nil, err
				}
				if !inv.Status.IsSettled() && inv.Status != entity.InvoiceStatusDraft {
					if updated, err := s.applyPromise(ctx, r, rc, inv, *promise, cls.Summary, now, ev); err != nil {
						return nil, err
					} else if updated != nil {
						c = updated
					}
				}
			}
		case entity.IntentAlreadyPaid, entity.IntentDispute:
			if c.Stage != entity.StageManualReview && domcollections.CanTransitionStage(c.Stage, entity.StageManualReview) {
				if c, err = s.changeStage(ctx, r, rc, c, entity.StageManualReview, cls.Summary, ev); err != nil {
					return nil, err
				}
			}
		case entity.IntentOptOut:
			if a.ContactID != "" && (a.Channel == entity.ChannelEmail || a.Channel == entity.ChannelWhatsapp) {
				contact, err := loadContact(ctx, r, rc, a.ContactID)
				if err != nil {
					return nil, err
				}
				if err := contact.OptOut(a.Channel, now); err != nil {
					return nil, err
				}
				if err := r.Contacts.Update(ctx, rc, contact); err != nil {
					return nil, fmt.Errorf("actualizar contacto: %w", err)
				}
			}
		}
	}
	if runID != "" {
		_, err := s.appendAction(ctx, r, rc, runID, c, domcollections.ActionDraft{
			Type:    entity.ActionClassifyResponse,
			Status:  entity.ActionSucceeded,
			Summary: cls.Summary,
			Payload: entity.ClassifyResponsePayload{
				CommunicationAttemptID: a.ID,
				Intent:                 intent,
				Confidence:             cls.Confidence,
				PromiseDate:            promise,
			},
		}, now)
		if err != nil {
			return nil, err
		}
	}
	return c, nil
}

func parseIntent(raw string) entity.ReplyIntent {
	switch intent := entity.ReplyIntent(strings.ToUpper(strings.TrimSpace(raw))); intent {
	case entity.IntentPromiseToPay, entity.IntentAlreadyPaid, entity.IntentDispute,
		entity.IntentRequestInfo, entity.IntentOptOut:
		return intent
	}
	return entity.IntentOther
}

// withClassification mezcla la clasificación en el payload del intento bajo "classification".
func withClassification(raw json.RawMessage, cls *dto.ReplyClassificationDTO) (json.RawMessage, error) {
	merged := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &merged); err != nil {
			merged = map[string]any{"original": raw}
		}
	}
	merged["classification"] = cls
	out, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("payload de clasificación: %w", err)
	}
	return out, nil
}

// acknowledgeLastOutbound marca como atendido el último mensaje saliente entregado del caso.
func acknowledgeLastOutbound(ctx context.Context, r Repositories, rc repository.RepositoryContext, caseID string, now time.Time) error {
	comms, err := r.Communications.ListByCase(ctx, rc, caseID)
	if err != nil {
		return fmt.Errorf("listar comunicaciones: %w", err)
	}
	for i := len(comms) - 1; i >= 0; i-- {
		a := comms[i]
		if a.Direction != entity.DirectionOutbound {
			continue
		}
		if a.Status != entity.CommunicationStatusSent && a.Status != entity.CommunicationStatusDelivered {
			continue
		}
		acked, err := domcollections.AcknowledgeCommunication(*a, now)
		if err != nil {
			return err
		}
		if err := r.Communications.Update(ctx, rc, &acked); err != nil {
			return fmt.Errorf("actualizar comunicación: %w", err)
		}
		return nil
	}
	return nil
}

// touchCase aplica fn al caso y lo persiste.
func touchCase(ctx context.Context, r Repositories, rc repository.RepositoryContext, caseID string, fn func(c *entity.CollectionCase), now time.Time) error {
	c, err := loadCase(ctx, r, rc, caseID)
	if err != nil {
		return err
	}
	fn(c)
	c.UpdatedAt = now
	if err := r.Cases.Update(ctx, rc, c); err != nil {
		return fmt.Errorf("actualizar caso: %w", err)
	}
	return nil
}
