package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"sudooom.im.mahjong/pkg/proto"
)

// RequestHandler 请求处理器接口
type RequestHandler interface {
	HandleStart(ctx context.Context, req *proto.StartGameRequest) *proto.Reply
	HandleAction(ctx context.Context, req *proto.ActionRequest) *proto.Reply
	HandleState(ctx context.Context, req *proto.StateRequest) *proto.Reply
}

// SubscriberConfig Worker Pool 配置
type SubscriberConfig struct {
	QueueGroup  string // 队列组
	WorkerCount int    // Worker 数量
	BufferSize  int    // 消息缓冲区大小
}

// RequestSubscriber 订阅开局、操作与查询请求
type RequestSubscriber struct {
	nc            *nats.Conn
	handler       RequestHandler
	logger        *zap.Logger
	config        SubscriberConfig
	subscriptions []*nats.Subscription
	msgChan       chan *nats.Msg
	wg            sync.WaitGroup
	cancelFunc    context.CancelFunc
}

// NewRequestSubscriber 创建请求订阅器
func NewRequestSubscriber(nc *nats.Conn, handler RequestHandler, config SubscriberConfig, logger *zap.Logger) *RequestSubscriber {
	if config.QueueGroup == "" {
		config.QueueGroup = proto.QueueGroupMahjong
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = 16
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 1024
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestSubscriber{
		nc:      nc,
		handler: handler,
		logger:  logger,
		config:  config,
	}
}

// Start 启动订阅
func (s *RequestSubscriber) Start(ctx context.Context) error {
	s.msgChan = make(chan *nats.Msg, s.config.BufferSize)

	workerCtx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel

	for i := 0; i < s.config.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(workerCtx)
	}

	for _, subject := range []string{proto.SubjectStart, proto.SubjectAction, proto.SubjectState} {
		sub, err := s.nc.QueueSubscribe(subject, s.config.QueueGroup, s.enqueue)
		if err != nil {
			cancel()
			s.unsubscribe()
			return fmt.Errorf("订阅 %s 失败: %w", subject, err)
		}
		s.subscriptions = append(s.subscriptions, sub)
	}

	s.logger.Info("NATS 订阅已启动",
		zap.String("queueGroup", s.config.QueueGroup),
		zap.Int("workerCount", s.config.WorkerCount),
		zap.Int("bufferSize", s.config.BufferSize))
	return nil
}

// enqueue 消息入队, 缓冲区满时直接回复繁忙
func (s *RequestSubscriber) enqueue(msg *nats.Msg) {
	select {
	case s.msgChan <- msg:
	default:
		s.logger.Warn("消息缓冲区已满, 丢弃请求", zap.String("subject", msg.Subject), zap.Int("bufferSize", s.config.BufferSize))
		s.respond(msg, &proto.Reply{Code: "BUSY", Message: "服务繁忙，请稍后重试"})
	}
}

func (s *RequestSubscriber) worker(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-s.msgChan:
			if !ok {
				return
			}
			reply, err := Dispatch(ctx, s.handler, msg.Subject, msg.Data)
			if err != nil {
				s.logger.Error("解析请求失败", zap.String("subject", msg.Subject), zap.Error(err))
				reply = &proto.Reply{Code: "MALFORMED_ACTION", Message: "无法解析的请求"}
			}
			s.respond(msg, reply)
		}
	}
}

// Dispatch 按 Subject 解析请求并交给处理器
func Dispatch(ctx context.Context, handler RequestHandler, subject string, data []byte) (*proto.Reply, error) {
	switch subject {
	case proto.SubjectStart:
		var req proto.StartGameRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, err
		}
		return handler.HandleStart(ctx, &req), nil
	case proto.SubjectAction:
		var req proto.ActionRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, err
		}
		return handler.HandleAction(ctx, &req), nil
	case proto.SubjectState:
		var req proto.StateRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, err
		}
		return handler.HandleState(ctx, &req), nil
	default:
		return nil, fmt.Errorf("未知的 subject: %s", subject)
	}
}

// respond 回复请求, 没有回复地址时忽略
func (s *RequestSubscriber) respond(msg *nats.Msg, reply *proto.Reply) {
	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(reply)
	if err != nil {
		s.logger.Error("序列化应答失败", zap.Error(err))
		return
	}
	if err := msg.Respond(data); err != nil {
		s.logger.Warn("回复请求失败", zap.String("subject", msg.Subject), zap.Error(err))
	}
}

func (s *RequestSubscriber) unsubscribe() {
	for _, sub := range s.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			s.logger.Error("取消订阅失败", zap.String("subject", sub.Subject), zap.Error(err))
		}
	}
	s.subscriptions = nil
}

// Stop 停止订阅并等待处理中的请求完成
func (s *RequestSubscriber) Stop() {
	s.unsubscribe()
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.wg.Wait()
	s.logger.Info("NATS 订阅已停止")
}

// BufferUsage 缓冲区使用情况
func (s *RequestSubscriber) BufferUsage() (current int, capacity int) {
	if s.msgChan == nil {
		return 0, 0
	}
	return len(s.msgChan), cap(s.msgChan)
}
