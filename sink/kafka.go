package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Bucknalla/go-route-simulator/gps"
	"github.com/Bucknalla/go-route-simulator/log"
	"github.com/IBM/sarama"
)

// KafkaConfig configures the Kafka fix stream.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	Device  string   `mapstructure:"device"` // message key and device field
}

// KafkaSink publishes each fix as a JSON message keyed by device.
type KafkaSink struct {
	producer sarama.SyncProducer
	topic    string
	device   string
	now      func() time.Time
	lg       *log.Logger
}

func NewKafkaSink(cfg KafkaConfig, lg *log.Logger) (*KafkaSink, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 5
	saramaConfig.Producer.Retry.Backoff = 100 * time.Millisecond
	saramaConfig.Producer.Return.Successes = true // required by SyncProducer
	saramaConfig.Net.DialTimeout = 30 * time.Second

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	lg.Info("kafka producer created", slog.Any("brokers", cfg.Brokers), slog.String("topic", cfg.Topic))
	return NewKafkaSinkWithProducer(producer, cfg.Topic, cfg.Device, lg), nil
}

func NewKafkaSinkWithProducer(producer sarama.SyncProducer, topic, device string, lg *log.Logger) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic, device: device, now: time.Now, lg: lg}
}

func (s *KafkaSink) Send(_ context.Context, p gps.SimulationPoint) error {
	value, err := json.Marshal(newMessage(s.device, p, s.now()))
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: s.topic,
		Value: sarama.ByteEncoder(value),
	}
	if s.device != "" {
		msg.Key = sarama.StringEncoder(s.device)
	}

	partition, offset, err := s.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("sending fix to topic %s: %w", s.topic, err)
	}
	s.lg.Debug("fix sent to kafka", slog.Int("partition", int(partition)), slog.Int64("offset", offset))
	return nil
}

func (s *KafkaSink) Close() error {
	return s.producer.Close()
}
