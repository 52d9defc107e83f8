package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/mural-table-bot/internal/board"
	"github.com/rs/zerolog/log"
)

// SessionMessage represents a message to be processed by the session worker.
type SessionMessage struct {
	Type string
	Ctx  context.Context
	Done chan struct{} // Closed when processing is complete (for synchronous dispatch)

	// Message data (only one is set based on Type)
	Message       *tgbotapi.Message
	CallbackQuery *tgbotapi.CallbackQuery
	Text          string
	AlbumBuffer   *AlbumBuffer // For album_timeout messages
}

// MessageSender abstracts the ability to send Telegram messages.
// This interface decouples UserSession from the full Bot struct,
// improving testability.
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// PendingImage is an image waiting to be downloaded and analyzed.
type PendingImage struct {
	FileID   string
	FileName string // set for documents; photos get a generated name
	IsPhoto  bool
}

// AlbumBuffer collects images from a Telegram album (MediaGroup) before processing.
type AlbumBuffer struct {
	MediaGroupID  string
	Images        []PendingImage
	Timer         *time.Timer
	FirstReceived time.Time
}

// AlbumBufferConfig holds configuration for album buffering behavior.
type AlbumBufferConfig struct {
	// GetBuffer returns the current album buffer (may be nil).
	GetBuffer func() *AlbumBuffer
	// SetBuffer sets the album buffer.
	SetBuffer func(buffer *AlbumBuffer)
	// OnFlush is called when a buffer needs to be processed (different album arrived).
	OnFlush func(ctx context.Context, images []PendingImage)
	// OnTimeout is called when the timer fires.
	OnTimeout func(buffer *AlbumBuffer)
	// Timeout duration for waiting for more images.
	Timeout time.Duration
	// MaxImages is the maximum number of images to buffer.
	MaxImages int
}

// BufferAlbumImage adds an image to the album buffer and schedules processing.
func BufferAlbumImage(ctx context.Context, img PendingImage, mediaGroupID string, config AlbumBufferConfig) {
	buffer := config.GetBuffer()

	// Initialize or update album buffer
	if buffer == nil || buffer.MediaGroupID != mediaGroupID {
		// If there's an existing buffer with images from a different album, flush it first
		if buffer != nil && len(buffer.Images) > 0 {
			if buffer.Timer != nil {
				buffer.Timer.Stop()
			}
			config.SetBuffer(nil)
			config.OnFlush(ctx, buffer.Images)
		}
		buffer = &AlbumBuffer{
			MediaGroupID:  mediaGroupID,
			Images:        []PendingImage{},
			FirstReceived: time.Now(),
		}
		config.SetBuffer(buffer)
	}

	// Add image to buffer (respect max limit)
	if len(buffer.Images) < config.MaxImages {
		buffer.Images = append(buffer.Images, img)
	}

	// Reset or start timer - dispatch through worker channel when done
	if buffer.Timer != nil {
		buffer.Timer.Stop()
	}

	// Capture buffer reference for timer closure
	capturedBuffer := buffer
	buffer.Timer = time.AfterFunc(config.Timeout, func() {
		config.OnTimeout(capturedBuffer)
	})
}

// ProcessAlbumBufferTimeout validates the buffer is still current, clears
// it and returns its images. Returns nil if the buffer is stale or empty.
func ProcessAlbumBufferTimeout(albumBuffer *AlbumBuffer, config AlbumBufferConfig) []PendingImage {
	currentBuffer := config.GetBuffer()

	// Verify this is still the active album buffer (wasn't replaced or cleared)
	if currentBuffer != albumBuffer {
		return nil
	}

	images := albumBuffer.Images
	config.SetBuffer(nil)

	if len(images) == 0 {
		return nil
	}
	return images
}

// MessageHandler is the interface for processing session messages.
// This allows the session to dispatch to external handlers without circular dependencies.
type MessageHandler interface {
	HandleSessionMessage(ctx context.Context, session *UserSession, msg SessionMessage)
}

// UserSession represents a user's session with the bot.
//
// Threading model:
//   - Each session has a dedicated worker goroutine that processes messages sequentially
//   - Message handlers are called only from the worker and can access session
//     state without locks
//   - The board has its own lock, so it may also be read from outside the worker
type UserSession struct {
	userId int64
	sender MessageSender

	// Worker channel for sequential message processing
	inbox   chan SessionMessage
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	handler MessageHandler // Set after construction to avoid circular deps

	// Accumulated project list, lost on restart
	board *board.Board

	albumBuffer *AlbumBuffer
}

// Board returns the session's project list.
func (s *UserSession) Board() *board.Board {
	return s.board
}

func (s *UserSession) reset() {
	log.Info().Int64("userId", s.userId).Msg("reset user session")
	if s.albumBuffer != nil && s.albumBuffer.Timer != nil {
		s.albumBuffer.Timer.Stop()
	}
	s.albumBuffer = nil
	s.board.Clear()
}

func (s *UserSession) replyWithError(err error) tgbotapi.Message {
	log.Error().Stack().Err(err).Send()
	return s._reply(formatReplyText(MsgUnexpectedErr, escapeMarkdown(err.Error())), false)
}

// sendTypingAction sends a "typing" chat action to show the user that the bot is processing.
// The typing indicator automatically expires after ~5 seconds in Telegram.
func (s *UserSession) sendTypingAction() {
	action := tgbotapi.NewChatAction(s.userId, tgbotapi.ChatTyping)
	// Use Request instead of Send because sendChatAction returns a boolean, not a Message
	_, err := s.sender.Request(action)
	if err != nil {
		log.Debug().Err(err).Int64("userId", s.userId).Msg("failed to send typing action")
	}
}

// startTypingLoop sends a typing action every 4 seconds until the context is cancelled.
// This keeps the typing indicator visible during long-running operations like image analysis.
// Run this in a goroutine and cancel the context when done.
func (s *UserSession) startTypingLoop(ctx context.Context) {
	// Send immediately
	s.sendTypingAction()

	ticker := time.NewTicker(4 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sendTypingAction()
		}
	}
}

func (s *UserSession) replyWithMessage(msg tgbotapi.MessageConfig) tgbotapi.Message {
	msg.ChatID = s.userId
	sent, err := s.sender.Send(msg)
	if err != nil {
		log.Error().Stack().
			Interface("msg", msg).
			Err(fmt.Errorf("failed to send reply message: %w", err)).Send()
	} else {
		log.Debug().Int("messageId", sent.MessageID).Msg("sent message")
	}

	return sent
}

func (s *UserSession) _reply(text string, removeReplyKeyboard bool) tgbotapi.Message {
	msg := tgbotapi.MessageConfig{
		Text:      text,
		ParseMode: tgbotapi.ModeMarkdown,
	}

	if removeReplyKeyboard {
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	}

	return s.replyWithMessage(msg)
}

func (s *UserSession) reply(text string, a ...any) tgbotapi.Message {
	return s._reply(formatReplyText(text, a...), false)
}

// editText replaces the text of a message sent earlier.
func (s *UserSession) editText(messageID int, text string, a ...any) {
	edit := tgbotapi.NewEditMessageText(s.userId, messageID, formatReplyText(text, a...))
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := s.sender.Request(edit); err != nil {
		log.Debug().Err(err).Int64("userId", s.userId).Msg("failed to edit message")
	}
}

// --- Worker methods ---

// StartWorker starts the session's message processing worker goroutine.
// Must be called after setting the handler.
func (s *UserSession) StartWorker() {
	s.wg.Add(1)
	go s.runWorker()
}

// SetHandler sets the message handler for this session.
func (s *UserSession) SetHandler(handler MessageHandler) {
	s.handler = handler
}

// runWorker is the main worker loop that processes messages sequentially.
func (s *UserSession) runWorker() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			// Drain any remaining messages and signal completion
			for {
				select {
				case msg := <-s.inbox:
					if msg.Done != nil {
						close(msg.Done)
					}
				default:
					return
				}
			}
		case msg := <-s.inbox:
			s.processMessage(msg)
		}
	}
}

// processMessage handles a single message from the inbox.
func (s *UserSession) processMessage(msg SessionMessage) {
	defer func() {
		// Recover from any panics to keep the worker running
		if r := recover(); r != nil {
			log.Error().
				Int64("userId", s.userId).
				Interface("panic", r).
				Msg("recovered from panic in session worker")
		}
		if msg.Done != nil {
			close(msg.Done)
		}
	}()

	if s.handler == nil {
		log.Error().Int64("userId", s.userId).Msg("session handler not set")
		return
	}

	s.handler.HandleSessionMessage(msg.Ctx, s, msg)
}

// Send queues a message for processing by the worker.
// This is non-blocking - it returns immediately after queuing.
func (s *UserSession) Send(msg SessionMessage) {
	select {
	case s.inbox <- msg:
	case <-s.ctx.Done():
		if msg.Done != nil {
			close(msg.Done)
		}
	}
}

// SendSync queues a message and waits for it to be processed.
// Returns when the message has been fully processed by the worker.
func (s *UserSession) SendSync(msg SessionMessage) {
	msg.Done = make(chan struct{})
	s.Send(msg)
	<-msg.Done
}

// Stop stops the worker and waits for it to finish.
func (s *UserSession) Stop() {
	s.cancel()
	s.wg.Wait()
}
