package websocket

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	chatDAO "cryptodash/internal/dao/chat"
	"cryptodash/internal/database"
	"cryptodash/internal/models"
	"cryptodash/internal/services/chat"
	"cryptodash/internal/types"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeBalance struct {
	mu    sync.Mutex
	frame models.TimeFrame
	hub   *Hub
}

func (f *fakeBalance) Snapshot() models.BalanceUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	return models.BalanceUpdate{Balance: 100, History: []float64{100}, Frame: f.frame}
}

func (f *fakeBalance) SelectFrame(label string) error {
	tf, err := models.ParseTimeFrame(label)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.frame = tf
	f.mu.Unlock()
	f.hub.Publish(types.BalanceUpdate, f.Snapshot())
	return nil
}

type fakeMarket struct{}

func (fakeMarket) Snapshot() models.MarketSnapshot {
	return models.MarketSnapshot{Coins: []models.Coin{{ID: "bitcoin", Symbol: "BTC"}}, RefreshedAt: 1}
}

type received struct {
	Type types.MessageType `json:"type"`
	Data json.RawMessage   `json:"data"`
}

type testServer struct {
	hub     *Hub
	balance *fakeBalance
	server  *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Connect("file::memory:", zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db, zap.NewNop()))

	hub := NewHub(zap.NewNop())
	go hub.Run()

	balance := &fakeBalance{frame: models.DefaultTimeFrame, hub: hub}
	chatService := chat.NewChatService(chatDAO.NewChatDAO(db), hub, chat.Options{}, zap.NewNop())

	handler := NewWebSocketHandler(hub, zap.NewNop())
	handler.SetHandlers(
		NewBalanceEventHandler(balance),
		NewChatEventHandler(chatService),
		NewMarketEventHandler(fakeMarket{}),
	)

	router := gin.New()
	router.GET("/ws", handler.HandleWebSocket)
	server := httptest.NewServer(router)

	t.Cleanup(func() {
		server.Close()
		hub.Stop()
		database.Close(db)
	})
	return &testServer{hub: hub, balance: balance, server: server}
}

func (s *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var msg received
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

// readUntil skips messages until one of the wanted type arrives
func readUntil(t *testing.T, conn *websocket.Conn, want types.MessageType) received {
	t.Helper()
	for {
		msg := readMessage(t, conn)
		if msg.Type == want {
			return msg
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, msgType types.MessageType, data interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(types.WebSocketMessage{Type: msgType, Data: data}))
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	assert.Eventually(t, func() bool { return hub.GetClientCount() == n }, 3*time.Second, 10*time.Millisecond)
}

func TestConnectSendsGreetingAndSnapshots(t *testing.T) {
	s := newTestServer(t)
	conn := s.dial(t)

	status := readMessage(t, conn)
	assert.Equal(t, types.ConnectionStatus, status.Type)
	var statusData types.ConnectionStatusData
	require.NoError(t, json.Unmarshal(status.Data, &statusData))
	assert.Equal(t, "connected", statusData.Status)
	assert.Len(t, statusData.ClientID, 36)

	balance := readMessage(t, conn)
	assert.Equal(t, types.BalanceUpdate, balance.Type)
	var update models.BalanceUpdate
	require.NoError(t, json.Unmarshal(balance.Data, &update))
	assert.Equal(t, models.TimeFrame24H, update.Frame)

	market := readMessage(t, conn)
	assert.Equal(t, types.MarketUpdate, market.Type)

	waitForClients(t, s.hub, 1)
}

func TestSelectFrameBroadcastsToAllClients(t *testing.T) {
	s := newTestServer(t)
	first := s.dial(t)
	second := s.dial(t)
	waitForClients(t, s.hub, 2)

	send(t, first, types.BalanceSelectFrame, BalanceSelectFrameData{Timeframe: "1y"})

	for _, conn := range []*websocket.Conn{first, second} {
		for {
			msg := readUntil(t, conn, types.BalanceUpdate)
			var update models.BalanceUpdate
			require.NoError(t, json.Unmarshal(msg.Data, &update))
			if update.Frame == models.TimeFrame1Y {
				break
			}
		}
	}
}

func TestInvalidFrameReturnsErrorToSenderOnly(t *testing.T) {
	s := newTestServer(t)
	conn := s.dial(t)
	waitForClients(t, s.hub, 1)

	send(t, conn, types.BalanceSelectFrame, BalanceSelectFrameData{Timeframe: "2H"})

	msg := readUntil(t, conn, types.Error)
	var data types.ErrorData
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.False(t, data.Success)
	assert.Contains(t, data.Error, "invalid time frame")
	assert.Equal(t, models.TimeFrame24H, s.balance.Snapshot().Frame)
}

func TestChatOverWebSocket(t *testing.T) {
	s := newTestServer(t)
	sender := s.dial(t)
	watcher := s.dial(t)
	waitForClients(t, s.hub, 2)

	send(t, sender, types.ChatSend, ChatSendData{CoinID: "ethereum", Body: "hello"})

	msg := readUntil(t, watcher, types.ChatMessage)
	var chatMsg models.ChatMessage
	require.NoError(t, json.Unmarshal(msg.Data, &chatMsg))
	assert.Equal(t, "ethereum", chatMsg.CoinID)
	assert.Equal(t, "hello", chatMsg.Body)

	send(t, sender, types.ChatGetHistory, ChatHistoryRequestData{CoinID: " Ethereum "})
	msg = readUntil(t, sender, types.ChatHistory)
	var history struct {
		CoinID   string               `json:"coinId"`
		Messages []models.ChatMessage `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(msg.Data, &history))
	assert.Equal(t, "ethereum", history.CoinID)
	require.Len(t, history.Messages, 1)
	assert.Equal(t, chatMsg.ID, history.Messages[0].ID)

	send(t, sender, types.ChatSend, ChatSendData{CoinID: "ethereum", Body: "   "})
	msg = readUntil(t, sender, types.Error)
	assert.Contains(t, string(msg.Data), "invalid chat message")
}

func TestUnknownAndMalformedMessages(t *testing.T) {
	s := newTestServer(t)
	conn := s.dial(t)
	waitForClients(t, s.hub, 1)

	send(t, conn, "order_place", nil)
	msg := readUntil(t, conn, types.Error)
	assert.Contains(t, string(msg.Data), "Unknown message type")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	msg = readUntil(t, conn, types.Error)
	assert.Contains(t, string(msg.Data), "Invalid message format")

	send(t, conn, types.MarketGetStatus, nil)
	msg = readUntil(t, conn, types.MarketUpdate)
	assert.Contains(t, string(msg.Data), "bitcoin")
}

func TestDisconnectUnregistersClient(t *testing.T) {
	s := newTestServer(t)
	conn := s.dial(t)
	waitForClients(t, s.hub, 1)

	require.NoError(t, conn.Close())
	waitForClients(t, s.hub, 0)

	// Publishing with no clients must not block
	s.hub.Publish(types.MarketUpdate, fakeMarket{}.Snapshot())
}

func TestClientSendAfterCloseIsDropped(t *testing.T) {
	client := &Client{Send: make(chan []byte, 1), ID: "test", logger: zap.NewNop()}
	assert.True(t, client.trySend([]byte("a")))
	assert.False(t, client.trySend([]byte("b")), "full buffer")

	client.close()
	client.close()
	assert.False(t, client.trySend([]byte("c")))
	client.SendMessage(types.Error, nil)
}
