package mocks

import (
	"github.com/go-telegram/bot/models"
)

// Sender is the Telegram account a test talks as, in a private chat.
type Sender struct {
	ChatID    int64
	UserID    int64
	Username  string
	FirstName string
	LastName  string
}

// NewSender returns a sender with placeholder names.
func NewSender(chatID, userID int64) Sender {
	return Sender{
		ChatID:    chatID,
		UserID:    userID,
		Username:  "testuser",
		FirstName: "Test",
		LastName:  "User",
	}
}

func (s Sender) user() models.User {
	return models.User{
		ID:        s.UserID,
		Username:  s.Username,
		FirstName: s.FirstName,
		LastName:  s.LastName,
	}
}

func (s Sender) message(id int) *models.Message {
	from := s.user()
	return &models.Message{
		ID:   id,
		Chat: models.Chat{ID: s.ChatID, Type: "private"},
		From: &from,
	}
}

// Message is a text message, commands included.
func (s Sender) Message(text string) *models.Update {
	msg := s.message(1)
	msg.Text = text
	return &models.Update{Message: msg}
}

// Photo is a photo message in two sizes: fileID+"_small" then fileID.
func (s Sender) Photo(fileID, caption string) *models.Update {
	msg := s.message(1)
	msg.Caption = caption
	msg.Photo = []models.PhotoSize{
		{FileID: fileID + "_small", FileUniqueID: fileID + "_small_unique", Width: 320, Height: 240},
		{FileID: fileID, FileUniqueID: fileID + "_unique", Width: 1280, Height: 960},
	}
	return &models.Update{Message: msg}
}

// Callback is a press on an inline button of the bot's message messageID.
func (s Sender) Callback(messageID int, data string) *models.Update {
	return &models.Update{
		CallbackQuery: &models.CallbackQuery{
			ID:      "callback-query-id",
			From:    s.user(),
			Message: models.MaybeInaccessibleMessage{Message: s.message(messageID)},
			Data:    data,
		},
	}
}

// MessageUpdate is a text message from the default sender.
func MessageUpdate(chatID, userID int64, text string) *models.Update {
	return NewSender(chatID, userID).Message(text)
}

// CommandUpdate is MessageUpdate for a slash command.
func CommandUpdate(chatID, userID int64, command string) *models.Update {
	return MessageUpdate(chatID, userID, command)
}

// CallbackQueryUpdate is a button press from the default sender.
func CallbackQueryUpdate(chatID, userID int64, messageID int, data string) *models.Update {
	return NewSender(chatID, userID).Callback(messageID, data)
}

// PhotoUpdate is a photo from the default sender.
func PhotoUpdate(chatID, userID int64, fileID, caption string) *models.Update {
	return NewSender(chatID, userID).Photo(fileID, caption)
}
