package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/padelpoint/access-service/internal/domain"
	"github.com/padelpoint/access-service/pkg/logger"
)

const (
	TopicMemberWindowUpdated = "member.window_updated"
	TopicMemberStopped       = "member.stopped"
	TopicCheckInRecorded     = "checkin.recorded"
)

// MemberWindowEvent представляет событие изменения окна участника для Kafka
type MemberWindowEvent struct {
	MemberID    string     `json:"member_id"`
	WindowStart *time.Time `json:"window_start,omitempty"`
	WindowEnd   *time.Time `json:"window_end,omitempty"`
	IsPaused    bool       `json:"is_paused"`
	IsStopped   bool       `json:"is_stopped"`
	StopReason  string     `json:"stop_reason,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
}

// CheckInEvent представляет событие записанного визита для Kafka
type CheckInEvent struct {
	CheckInID   string    `json:"check_in_id"`
	MemberID    string    `json:"member_id"`
	BranchID    string    `json:"branch_id"`
	CheckInTime time.Time `json:"check_in_time"`
	DayBucket   string    `json:"day_bucket"`
	Timestamp   time.Time `json:"timestamp"`
}

// AccessProducer интерфейс для отправки событий доступа
type AccessProducer interface {
	PublishWindowUpdated(ctx context.Context, member domain.Member) error
	PublishMemberStopped(ctx context.Context, member domain.Member) error
	PublishCheckInRecorded(ctx context.Context, checkIn domain.CheckIn) error
	Close() error
}

type kafkaAccessProducer struct {
	producer sarama.SyncProducer
	log      *logger.Logger
}

// NewKafkaAccessProducer создает новый продюсер событий доступа
func NewKafkaAccessProducer(producer sarama.SyncProducer, log *logger.Logger) AccessProducer {
	return &kafkaAccessProducer{
		producer: producer,
		log:      log,
	}
}

// PublishWindowUpdated публикует событие об изменении окна участника
func (p *kafkaAccessProducer) PublishWindowUpdated(ctx context.Context, member domain.Member) error {
	return p.publishMemberEvent(TopicMemberWindowUpdated, member)
}

// PublishMemberStopped публикует событие об остановке участника
func (p *kafkaAccessProducer) PublishMemberStopped(ctx context.Context, member domain.Member) error {
	return p.publishMemberEvent(TopicMemberStopped, member)
}

// PublishCheckInRecorded публикует событие о записанном визите
func (p *kafkaAccessProducer) PublishCheckInRecorded(ctx context.Context, checkIn domain.CheckIn) error {
	event := CheckInEvent{
		CheckInID:   checkIn.ID.String(),
		MemberID:    checkIn.MemberID.String(),
		BranchID:    checkIn.BranchID.String(),
		CheckInTime: checkIn.CheckInTime,
		DayBucket:   checkIn.LocalDayBucket,
		Timestamp:   time.Now(),
	}

	return p.publish(TopicCheckInRecorded, checkIn.MemberID.String(), event)
}

// publishMemberEvent публикует событие участника в Kafka
func (p *kafkaAccessProducer) publishMemberEvent(topic string, member domain.Member) error {
	event := MemberWindowEvent{
		MemberID:    member.ID.String(),
		WindowStart: member.SubscriptionStartDate,
		WindowEnd:   member.SubscriptionEndDate,
		IsPaused:    member.IsPaused,
		IsStopped:   member.IsStopped,
		StopReason:  member.StopReason,
		Timestamp:   time.Now(),
	}

	return p.publish(topic, member.ID.String(), event)
}

func (p *kafkaAccessProducer) publish(topic, key string, event interface{}) error {
	messageValue, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal access event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(messageValue),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("event_type"),
				Value: []byte(topic),
			},
		},
		Timestamp: time.Now(),
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to publish access event: %w", err)
	}

	p.log.Info("Published access event to topic %s: partition=%d offset=%d",
		topic, partition, offset)

	return nil
}

// Close закрывает продюсер
func (p *kafkaAccessProducer) Close() error {
	return p.producer.Close()
}
