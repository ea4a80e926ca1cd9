package nats

import (
	"encoding/json"

	"go.uber.org/zap"

	"sudooom.im.mahjong/internal/game/mahjong/fzmahjong"
	"sudooom.im.mahjong/pkg/proto"
)

// Publisher 发布消息, *nats.Conn 满足该接口
type Publisher interface {
	Publish(subject string, data []byte) error
}

// EventPublisher 把引擎事件发布到牌局的 Subject
//
// 私有快照与开局事件只发给对应座位, 其余事件发到公开 Subject。
type EventPublisher struct {
	pub    Publisher
	logger *zap.Logger
}

// NewEventPublisher 创建事件发布器
func NewEventPublisher(pub Publisher, logger *zap.Logger) *EventPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventPublisher{pub: pub, logger: logger}
}

// Subject 事件对应的 Subject
func Subject(ev fzmahjong.Event) string {
	if ev.SeatOnly() {
		return proto.BuildSeatSubject(ev.GameID, ev.Seat)
	}
	return proto.BuildPublicSubject(ev.GameID)
}

// Notify 实现 fzmahjong.Notifier
func (p *EventPublisher) Notify(ev fzmahjong.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		p.logger.Error("序列化事件失败", zap.String("gameId", ev.GameID), zap.String("type", string(ev.Type)), zap.Error(err))
		return
	}
	subject := Subject(ev)
	if err := p.pub.Publish(subject, data); err != nil {
		p.logger.Warn("发布事件失败", zap.String("subject", subject), zap.Error(err))
		return
	}
	p.logger.Debug("发布事件", zap.String("subject", subject), zap.String("type", string(ev.Type)))
}
