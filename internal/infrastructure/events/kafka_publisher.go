// Package events publica los eventos de dominio de cobranza hacia Kafka o, sin brokers, hacia el log.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/emiliofantozzi/cobra/internal/application/ports"
	"github.com/emiliofantozzi/cobra/pkg/config"
	"github.com/emiliofantozzi/cobra/pkg/logger"
)

var (
	_ ports.EventPublisher = (*KafkaPublisher)(nil)
	_ ports.EventPublisher = (*LogPublisher)(nil)
)

// KafkaWriter lo que el publicador necesita de kafka.Writer.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher escribe cada evento como un mensaje JSON con clave = id del agregado,
// de modo que los eventos de un mismo caso o factura conservan el orden dentro de la partición.
type KafkaPublisher struct {
	writer KafkaWriter
	log    *logger.Logger
}

// NewKafkaPublisher crea el writer sobre los brokers configurados e intenta crear el tópico.
func NewKafkaPublisher(cfg config.KafkaConfig, log *logger.Logger) (*KafkaPublisher, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("kafka: sin brokers configurados")
	}
	conn, err := kafka.Dial("tcp", cfg.Brokers[0])
	if err != nil {
		return nil, fmt.Errorf("kafka: conectar a %s: %w", cfg.Brokers[0], err)
	}
	defer conn.Close()
	if err := conn.CreateTopics(kafka.TopicConfig{Topic: cfg.Topic, NumPartitions: 3, ReplicationFactor: 1}); err != nil {
		log.Warn().Err(err).Str("topic", cfg.Topic).Msg("no se pudo crear el tópico (puede existir)")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
	return NewKafkaPublisherWithWriter(w, log), nil
}

// NewKafkaPublisherWithWriter permite inyectar el writer.
func NewKafkaPublisherWithWriter(w KafkaWriter, log *logger.Logger) *KafkaPublisher {
	if log == nil {
		log = logger.Nop()
	}
	return &KafkaPublisher{writer: w, log: log}
}

// Publish escribe el lote en una sola llamada.
func (p *KafkaPublisher) Publish(ctx context.Context, events ...ports.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(events))
	for _, ev := range events {
		value, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("serializar evento %s: %w", ev.Type, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(ev.AggregateID),
			Value: value,
			Time:  ev.OccurredAt,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(ev.Type)},
				{Key: "organization_id", Value: []byte(ev.OrganizationID)},
			},
		})
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka: publicar %d evento(s): %w", len(msgs), err)
	}
	p.log.Debug().Int("events", len(msgs)).Msg("eventos publicados")
	return nil
}

// Close cierra el writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher registra los eventos en el log (desarrollo o sin Kafka).
type LogPublisher struct {
	log *logger.Logger
}

// NewLogPublisher construye el publicador de log.
func NewLogPublisher(log *logger.Logger) *LogPublisher {
	if log == nil {
		log = logger.Nop()
	}
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, events ...ports.DomainEvent) error {
	for _, ev := range events {
		p.log.Info().
			Str("event_id", ev.ID).
			Str("event_type", ev.Type).
			Str("organization_id", ev.OrganizationID).
			Str("aggregate_id", ev.AggregateID).
			Time("occurred_at", ev.OccurredAt).
			Msg("evento de dominio")
	}
	return nil
}
