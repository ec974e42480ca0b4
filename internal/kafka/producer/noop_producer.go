package producer

import (
	"context"

	"github.com/padelpoint/access-service/internal/domain"
	"github.com/padelpoint/access-service/pkg/logger"
)

// noopProducer заглушка продюсера для запуска без Kafka
type noopProducer struct {
	log *logger.Logger
}

// NewNoopProducer создает продюсер, который только логирует события
func NewNoopProducer(log *logger.Logger) AccessProducer {
	return &noopProducer{log: log}
}

func (p *noopProducer) PublishWindowUpdated(ctx context.Context, member domain.Member) error {
	p.log.Debugw("Kafka disabled, skipping window updated event", "memberID", member.ID)
	return nil
}

func (p *noopProducer) PublishMemberStopped(ctx context.Context, member domain.Member) error {
	p.log.Debugw("Kafka disabled, skipping member stopped event", "memberID", member.ID)
	return nil
}

func (p *noopProducer) PublishCheckInRecorded(ctx context.Context, checkIn domain.CheckIn) error {
	p.log.Debugw("Kafka disabled, skipping check-in recorded event", "checkInID", checkIn.ID)
	return nil
}

func (p *noopProducer) Close() error {
	return nil
}
