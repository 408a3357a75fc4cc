// Package mocks provides test doubles for the Telegram side of the bot.
package mocks

import (
	"context"
	"errors"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// TelegramAPI is the part of *bot.Bot the handlers call. It lives here rather
// than in package bot so the mock can assert it without an import cycle.
type TelegramAPI interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
	GetFile(ctx context.Context, params *bot.GetFileParams) (*models.File, error)
	FileDownloadLink(f *models.File) string
	SendDocument(ctx context.Context, params *bot.SendDocumentParams) (*models.Message, error)
}

// ErrMock is a ready-made failure for the *Error fields.
var ErrMock = errors.New("mock error")

// DefaultDownloadLink is returned by FileDownloadLink unless overridden.
const DefaultDownloadLink = "https://api.telegram.org/file/bot123/photos/test.jpg"

var _ TelegramAPI = (*MockBot)(nil)

// MockBot records every call with its full parameters, so tests can look at
// keyboards, captions and uploaded files. Setting one of the *Error fields
// makes the matching call fail without being recorded.
type MockBot struct {
	mu sync.RWMutex

	SentMessages      []bot.SendMessageParams
	EditedMessages    []bot.EditMessageTextParams
	AnsweredCallbacks []bot.AnswerCallbackQueryParams
	SentDocuments     []bot.SendDocumentParams

	SendMessageError  error
	EditMessageError  error
	GetFileError      error
	SendDocumentError error

	FileToReturn             *models.File
	FileDownloadLinkToReturn string

	// NextMessageID numbers sent messages and documents.
	NextMessageID int
}

// NewMockBot returns a MockBot whose first message gets ID 1000.
func NewMockBot() *MockBot {
	return &MockBot{NextMessageID: 1000}
}

// reply builds the message Telegram would return. Callers hold the lock.
func (m *MockBot) reply(chatID any) *models.Message {
	msg := &models.Message{ID: m.NextMessageID, Chat: models.Chat{ID: chatIDToInt64(chatID)}}
	m.NextMessageID++
	return msg
}

func (m *MockBot) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendMessageError != nil {
		return nil, m.SendMessageError
	}
	m.SentMessages = append(m.SentMessages, *params)
	msg := m.reply(params.ChatID)
	msg.Text = params.Text
	return msg, nil
}

func (m *MockBot) EditMessageText(_ context.Context, params *bot.EditMessageTextParams) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EditMessageError != nil {
		return nil, m.EditMessageError
	}
	m.EditedMessages = append(m.EditedMessages, *params)
	return &models.Message{
		ID:   params.MessageID,
		Chat: models.Chat{ID: chatIDToInt64(params.ChatID)},
		Text: params.Text,
	}, nil
}

func (m *MockBot) AnswerCallbackQuery(_ context.Context, params *bot.AnswerCallbackQueryParams) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AnsweredCallbacks = append(m.AnsweredCallbacks, *params)
	return true, nil
}

func (m *MockBot) SendDocument(_ context.Context, params *bot.SendDocumentParams) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendDocumentError != nil {
		return nil, m.SendDocumentError
	}
	m.SentDocuments = append(m.SentDocuments, *params)

	msg := m.reply(params.ChatID)
	msg.Caption = params.Caption
	msg.Document = &models.Document{FileID: "mock_file_id"}
	if upload, ok := params.Document.(*models.InputFileUpload); ok {
		msg.Document.FileName = upload.Filename
	}
	return msg, nil
}

// GetFile returns FileToReturn, or a placeholder photo.
func (m *MockBot) GetFile(_ context.Context, _ *bot.GetFileParams) (*models.File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	switch {
	case m.GetFileError != nil:
		return nil, m.GetFileError
	case m.FileToReturn != nil:
		return m.FileToReturn, nil
	}
	return &models.File{FileID: "test-file-id", FilePath: "photos/test.jpg"}, nil
}

// FileDownloadLink returns FileDownloadLinkToReturn, typically an httptest
// server URL, or DefaultDownloadLink.
func (m *MockBot) FileDownloadLink(_ *models.File) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FileDownloadLinkToReturn != "" {
		return m.FileDownloadLinkToReturn
	}
	return DefaultDownloadLink
}

// Reset forgets recorded calls and configured errors.
func (m *MockBot) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentMessages, m.EditedMessages = nil, nil
	m.AnsweredCallbacks, m.SentDocuments = nil, nil
	m.SendMessageError, m.EditMessageError = nil, nil
	m.GetFileError, m.SendDocumentError = nil, nil
}

func lastOf[T any](mu *sync.RWMutex, items *[]T) *T {
	mu.RLock()
	defer mu.RUnlock()
	if len(*items) == 0 {
		return nil
	}
	item := (*items)[len(*items)-1]
	return &item
}

func countOf[T any](mu *sync.RWMutex, items *[]T) int {
	mu.RLock()
	defer mu.RUnlock()
	return len(*items)
}

// LastSentMessage returns a copy of the latest message, or nil.
func (m *MockBot) LastSentMessage() *bot.SendMessageParams {
	return lastOf(&m.mu, &m.SentMessages)
}

// LastEditedMessage returns a copy of the latest edit, or nil.
func (m *MockBot) LastEditedMessage() *bot.EditMessageTextParams {
	return lastOf(&m.mu, &m.EditedMessages)
}

// LastSentDocument returns a copy of the latest upload, or nil.
func (m *MockBot) LastSentDocument() *bot.SendDocumentParams {
	return lastOf(&m.mu, &m.SentDocuments)
}

func (m *MockBot) SentMessageCount() int {
	return countOf(&m.mu, &m.SentMessages)
}

func (m *MockBot) SentDocumentCount() int {
	return countOf(&m.mu, &m.SentDocuments)
}

func chatIDToInt64(chatID any) int64 {
	switch v := chatID.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}
