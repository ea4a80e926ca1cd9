package spectator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"sudooom.im.mahjong/internal/game/mahjong/core"
	"sudooom.im.mahjong/internal/game/mahjong/fzmahjong"
)

const (
	// SpectatePath 观战入口, 参数 game 为牌局ID
	SpectatePath = "/ws/spectate"

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StateSource 查询牌局公开状态
type StateSource interface {
	PublicState(ctx context.Context, gameID string) (fzmahjong.PublicSnapshot, error)
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	gameID string
}

type broadcast struct {
	gameID string
	data   []byte
}

// Hub 观战连接管理, 只转发公开事件
type Hub struct {
	source StateSource
	logger *zap.Logger

	clients    map[string]map[*client]struct{} // gameId -> clients
	register   chan *client
	unregister chan *client
	broadcast  chan broadcast
	done       chan struct{}
}

// NewHub 创建观战 Hub, 需要调用 Run 之后才会转发事件
func NewHub(source StateSource, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		source:     source,
		logger:     logger,
		clients:    make(map[string]map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan broadcast, 1024),
		done:       make(chan struct{}),
	}
}

// Run 运行事件循环, ctx 结束时断开所有观战连接
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		for _, set := range h.clients {
			for c := range set {
				close(c.send)
			}
		}
		h.clients = make(map[string]map[*client]struct{})
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			set, ok := h.clients[c.gameID]
			if !ok {
				set = make(map[*client]struct{})
				h.clients[c.gameID] = set
			}
			set[c] = struct{}{}
			h.logger.Debug("观战者加入", zap.String("gameId", c.gameID), zap.Int("spectators", len(set)))

		case c := <-h.unregister:
			h.remove(c)

		case msg := <-h.broadcast:
			for c := range h.clients[msg.gameID] {
				select {
				case c.send <- msg.data:
				default:
					// 消费太慢直接断开
					h.logger.Warn("观战者发送缓冲已满, 断开连接", zap.String("gameId", c.gameID))
					h.remove(c)
				}
			}
		}
	}
}

func (h *Hub) remove(c *client) {
	set, ok := h.clients[c.gameID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.gameID)
	}
}

// Notify 实现 fzmahjong.Notifier
func (h *Hub) Notify(ev fzmahjong.Event) {
	if ev.SeatOnly() || ev.Private != nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("序列化观战事件失败", zap.String("gameId", ev.GameID), zap.Error(err))
		return
	}

	select {
	case h.broadcast <- broadcast{gameID: ev.GameID, data: data}:
	default:
		h.logger.Warn("观战广播队列已满, 丢弃事件", zap.String("gameId", ev.GameID), zap.String("type", string(ev.Type)))
	}
}

// ServeHTTP 升级为 WebSocket 并先推送一次当前公开状态
//
// 连接先注册再读取快照, 读取期间产生的事件排在快照之后发出, 不会丢失。
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	gameID := r.URL.Query().Get("game")
	if gameID == "" {
		http.Error(w, "缺少参数 game", http.StatusBadRequest)
		return
	}

	snap, err := h.source.PublicState(r.Context(), gameID)
	if err != nil {
		if errors.Is(err, core.ErrGameNotFound) {
			http.Error(w, "牌局不存在", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket 升级失败", zap.Error(err))
		return
	}

	c := &client{
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		gameID: gameID,
	}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	if latest, err := h.source.PublicState(r.Context(), gameID); err == nil {
		snap = latest
	} else {
		h.logger.Warn("刷新观战快照失败", zap.String("gameId", gameID), zap.Error(err))
	}
	initial, err := json.Marshal(fzmahjong.Event{
		Type:   fzmahjong.EventPublicStateChanged,
		GameID: gameID,
		Seat:   fzmahjong.BroadcastSeat,
		Public: &snap,
	})
	if err != nil {
		h.logger.Error("序列化观战快照失败", zap.String("gameId", gameID), zap.Error(err))
		initial = nil
	}

	go h.writePump(c, initial)
	go h.readPump(c)
}

// readPump 观战者只读, 收到的消息全部丢弃
func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump initial 不为空时最先写出
func (h *Hub) writePump(c *client, initial []byte) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	if initial != nil {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, initial); err != nil {
			return
		}
	}

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
