package websocket

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"messaging-service/internal/database"
	"messaging-service/internal/models"
	"messaging-service/internal/repository"
	"messaging-service/internal/service"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type recordingDispatcher struct {
	events chan *models.Message
}

func (d *recordingDispatcher) MessageSent(ctx context.Context, msg *models.Message) error {
	d.events <- msg
	return nil
}

type gatewayFixture struct {
	db         *gorm.DB
	hub        *Hub
	messages   *service.MessageService
	dispatcher *recordingDispatcher
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get database instance: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	privacy := service.NewPrivacyService(userRepo)

	return &gatewayFixture{
		db:         db,
		hub:        NewHub(nil, nil),
		messages:   service.NewMessageService(messageRepo, privacy),
		dispatcher: &recordingDispatcher{events: make(chan *models.Message, 8)},
	}
}

func (f *gatewayFixture) seedUser(t *testing.T, id uint, username, privacy string) {
	t.Helper()
	user := models.User{ID: id, Username: username, Email: username + "@example.com", MessagePrivacy: privacy}
	if err := f.db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}
}

func (f *gatewayFixture) seedFollow(t *testing.T, follower, target uint) {
	t.Helper()
	if err := f.db.Create(&models.Follow{FollowerID: follower, TargetID: target}).Error; err != nil {
		t.Fatalf("Failed to seed follow: %v", err)
	}
}

func (f *gatewayFixture) openClient(userID, peerID uint) *Client {
	c := &Client{
		id:         "test",
		hub:        f.hub,
		send:       make(chan []byte, 8),
		userID:     userID,
		peerID:     peerID,
		room:       RoomName(userID, peerID),
		messages:   f.messages,
		dispatcher: f.dispatcher,
	}
	f.hub.Join(c)
	return c
}

func TestGatewaySendMessage(t *testing.T) {
	ctx := context.Background()
	f := newGatewayFixture(t)
	f.seedUser(t, 3, "maria", models.PrivacyPrivate)
	f.seedUser(t, 4, "tomas", models.PrivacyPublic)
	f.seedFollow(t, 3, 4)
	f.seedFollow(t, 4, 3)

	sender := f.openClient(4, 3)
	receiver := f.openClient(3, 4)

	sender.handleSendMessage(ctx, &ClientEvent{Action: ActionSendMessage, Content: "hello"})

	var row models.Message
	if err := f.db.First(&row).Error; err != nil {
		t.Fatalf("Expected a persisted message row: %v", err)
	}
	if row.SenderID != 4 || row.ReceiverID != 3 || row.Content != "hello" || row.IsRead {
		t.Errorf("Unexpected row: sender=%d receiver=%d content=%q is_read=%v",
			row.SenderID, row.ReceiverID, row.Content, row.IsRead)
	}

	// Both open connections in the room receive the event with the
	// persisted payload.
	for _, c := range []*Client{sender, receiver} {
		var evt ChatMessageEvent
		if err := json.Unmarshal(receiveOrFail(t, c), &evt); err != nil {
			t.Fatalf("Failed to decode event: %v", err)
		}
		if evt.Type != EventChatMessage {
			t.Errorf("Expected %s event, got %s", EventChatMessage, evt.Type)
		}
		if evt.Message.ID != row.ID || evt.Message.Sender != 4 || evt.Message.Receiver != 3 || evt.Message.Content != "hello" {
			t.Errorf("Event payload does not match persisted row: %+v", evt.Message)
		}
	}

	select {
	case msg := <-f.dispatcher.events:
		if msg.ID != row.ID {
			t.Errorf("Dispatcher got message %d, want %d", msg.ID, row.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected a notification dispatch")
	}
}

func TestGatewaySendMessageAttachment(t *testing.T) {
	ctx := context.Background()
	f := newGatewayFixture(t)
	f.seedUser(t, 1, "ana", models.PrivacyPublic)
	f.seedUser(t, 2, "ben", models.PrivacyPublic)

	sender := f.openClient(1, 2)
	raw := []byte{0x89, 0x50, 0x4e, 0x47, 0x00, 0x01}
	sender.handleSendMessage(ctx, &ClientEvent{
		Action:      ActionSendMessage,
		MessageType: models.MessageTypeImage,
		FileData:    base64.StdEncoding.EncodeToString(raw),
		FileName:    "pitch.png",
		FileType:    "image/png",
	})

	var row models.Message
	if err := f.db.First(&row).Error; err != nil {
		t.Fatalf("Expected a persisted message row: %v", err)
	}
	if string(row.FileData) != string(raw) {
		t.Error("Stored attachment bytes differ from the decoded upload")
	}
	if row.FileSize != int64(len(raw)) {
		t.Errorf("Expected file size %d, got %d", len(raw), row.FileSize)
	}

	var evt ChatMessageEvent
	if err := json.Unmarshal(receiveOrFail(t, sender), &evt); err != nil {
		t.Fatalf("Failed to decode event: %v", err)
	}
	if evt.Message.FileBase64 != base64.StdEncoding.EncodeToString(raw) {
		t.Error("Event carries wrong attachment encoding")
	}

	t.Run("InvalidBase64IsDroppedLocally", func(t *testing.T) {
		sender.handleSendMessage(ctx, &ClientEvent{
			Action:   ActionSendMessage,
			FileData: "!!! not base64 !!!",
			FileName: "x.bin",
		})
		var count int64
		f.db.Model(&models.Message{}).Count(&count)
		if count != 1 {
			t.Errorf("Expected no new row for invalid attachment, got %d rows", count)
		}
	})
}

// A stale-authorized channel must fail closed: the privacy re-check at
// send time drops the message without a row and without an event.
func TestGatewaySendMessagePrivacyFailClosed(t *testing.T) {
	ctx := context.Background()
	f := newGatewayFixture(t)
	f.seedUser(t, 7, "nadia", models.PrivacyPrivate)
	f.seedUser(t, 8, "oscar", models.PrivacyPublic)
	// No follow edges: 8 may no longer message 7.

	sender := f.openClient(8, 7)
	peer := f.openClient(7, 8)

	sender.handleSendMessage(ctx, &ClientEvent{Action: ActionSendMessage, Content: "let me in"})

	var count int64
	f.db.Model(&models.Message{}).Count(&count)
	if count != 0 {
		t.Errorf("Expected no message row after privacy rejection, got %d", count)
	}
	assertNoDelivery(t, sender)
	assertNoDelivery(t, peer)
}

func TestGatewayMarkRead(t *testing.T) {
	ctx := context.Background()
	f := newGatewayFixture(t)
	f.seedUser(t, 5, "lena", models.PrivacyPublic)
	f.seedUser(t, 6, "piotr", models.PrivacyPublic)

	senderClient := f.openClient(6, 5)
	readerClient := f.openClient(5, 6)

	senderClient.handleSendMessage(ctx, &ClientEvent{Action: ActionSendMessage, Content: "one"})
	senderClient.handleSendMessage(ctx, &ClientEvent{Action: ActionSendMessage, Content: "two"})

	var ids []uint
	f.db.Model(&models.Message{}).Order("id").Pluck("id", &ids)
	if len(ids) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(ids))
	}
	// Drain the chat_message events first.
	for i := 0; i < 2; i++ {
		receiveOrFail(t, senderClient)
		receiveOrFail(t, readerClient)
	}

	readerClient.handleMarkRead(ctx, &ClientEvent{Action: ActionMarkRead, MessageIDs: ids})

	var unread int64
	f.db.Model(&models.Message{}).Where("is_read = ?", false).Count(&unread)
	if unread != 0 {
		t.Errorf("Expected all messages read, %d still unread", unread)
	}

	var receipt ReadReceiptEvent
	if err := json.Unmarshal(receiveOrFail(t, senderClient), &receipt); err != nil {
		t.Fatalf("Failed to decode receipt: %v", err)
	}
	if receipt.Type != EventReadReceipt || receipt.ReaderID != 5 || len(receipt.MessageIDs) != 2 {
		t.Errorf("Unexpected receipt: %+v", receipt)
	}
}
