package bot

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/mural-table-bot/internal/board"
	"github.com/rs/zerolog/log"
)

const (
	albumBufferTimeout = 1500 * time.Millisecond
	maxAlbumImages     = 10

	// photoSourcePrefix marks record sources that are Telegram photo file
	// IDs and can be sent back as the card image.
	photoSourcePrefix = "tgphoto:"
)

// BatchHandler turns incoming photos and image documents into batches for
// the board processor.
type BatchHandler struct {
	tg         BotAPI
	downloader *ImageDownloader
	processor  *board.Processor
}

func NewBatchHandler(tg BotAPI, downloader *ImageDownloader) *BatchHandler {
	return &BatchHandler{tg: tg, downloader: downloader}
}

func (h *BatchHandler) albumConfig(session *UserSession) AlbumBufferConfig {
	return AlbumBufferConfig{
		GetBuffer: func() *AlbumBuffer { return session.albumBuffer },
		SetBuffer: func(buffer *AlbumBuffer) { session.albumBuffer = buffer },
		OnFlush: func(ctx context.Context, images []PendingImage) {
			h.runBatch(ctx, session, images)
		},
		OnTimeout: func(buffer *AlbumBuffer) {
			// Use context.Background() since the original request context may be cancelled by now
			session.Send(SessionMessage{
				Type:        "album_timeout",
				Ctx:         context.Background(),
				AlbumBuffer: buffer,
			})
		},
		Timeout:   albumBufferTimeout,
		MaxImages: maxAlbumImages,
	}
}

// HandlePhoto processes a photo message. Album photos are buffered so the
// whole album becomes one batch.
// Called from session worker - no locking needed.
func (h *BatchHandler) HandlePhoto(ctx context.Context, session *UserSession, message *tgbotapi.Message) {
	// Get the largest photo size
	largest := message.Photo[len(message.Photo)-1]
	h.handleImage(ctx, session, message, PendingImage{FileID: largest.FileID, IsPhoto: true})
}

// HandleDocument processes a file sent without compression. Only JPEG and
// PNG files are accepted.
func (h *BatchHandler) HandleDocument(ctx context.Context, session *UserSession, message *tgbotapi.Message) {
	doc := message.Document
	if !isSupportedDocument(doc) {
		session.reply(MsgUnsupportedFile)
		return
	}
	h.handleImage(ctx, session, message, PendingImage{FileID: doc.FileID, FileName: doc.FileName})
}

func (h *BatchHandler) handleImage(ctx context.Context, session *UserSession, message *tgbotapi.Message, img PendingImage) {
	if message.MediaGroupID != "" {
		BufferAlbumImage(ctx, img, message.MediaGroupID, h.albumConfig(session))
		return
	}
	h.runBatch(ctx, session, []PendingImage{img})
}

// ProcessAlbumTimeout handles the album timeout message from the worker channel.
// Called from session worker - no locking needed.
func (h *BatchHandler) ProcessAlbumTimeout(ctx context.Context, session *UserSession, albumBuffer *AlbumBuffer) {
	images := ProcessAlbumBufferTimeout(albumBuffer, h.albumConfig(session))
	if images == nil {
		return
	}
	h.runBatch(ctx, session, images)
}

func isSupportedDocument(doc *tgbotapi.Document) bool {
	switch doc.MimeType {
	case "image/jpeg", "image/png":
		return true
	}
	switch strings.ToLower(path.Ext(doc.FileName)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

// runBatch downloads the images, runs them through the processor and
// reports the outcome of each image followed by cards for the new records.
func (h *BatchHandler) runBatch(ctx context.Context, session *UserSession, pending []PendingImage) {
	if h.processor == nil {
		session.reply(MsgAnalysisNotAvail)
		return
	}

	typingCtx, stopTyping := context.WithCancel(ctx)
	defer stopTyping()
	go session.startTypingLoop(typingCtx)

	status := session.reply(MsgBatchStarted, len(pending))

	images := make([]board.Image, 0, len(pending))
	for i, p := range pending {
		name := imageName(p, i)
		data, err := h.downloader.DownloadFromTelegramFileID(ctx, h.tg.GetFileDirectURL, p.FileID)
		if err != nil {
			log.Error().Err(err).Str("image", name).Msg("image download failed")
			session.reply(MsgImageDownloadFail, escapeMarkdown(name))
			continue
		}
		img := board.Image{Name: name, Data: data}
		if p.IsPhoto {
			img.Source = photoSourcePrefix + p.FileID
		}
		images = append(images, img)
	}
	if len(images) == 0 {
		if status.MessageID != 0 {
			session.editText(status.MessageID, MsgBatchNothingAdded)
		}
		return
	}

	before := session.board.Len()
	report := h.processor.Run(ctx, session.board, images, func(done, total int, _ board.Outcome) {
		if status.MessageID != 0 && done < total {
			session.editText(status.MessageID, MsgBatchProgress, done, total)
		}
	})
	stopTyping()

	for _, o := range report.Outcomes {
		name := escapeMarkdown(o.Image)
		switch o.Status {
		case board.OutcomeFailed:
			session.reply(MsgImageFailed, name, failureReason(o.Err))
		case board.OutcomeEmpty:
			session.reply(MsgImageNoData, name, board.MsgNoData)
		}
		if o.Rejected > 0 {
			session.reply(MsgRecordsRejected, name, o.Rejected)
		}
	}

	added := report.Added()
	if status.MessageID != 0 {
		if added > 0 {
			session.editText(status.MessageID, MsgBatchDone, added, session.board.Len())
		} else {
			session.editText(status.MessageID, MsgBatchNothingAdded)
		}
	}
	if added == 0 {
		return
	}

	sendCardsFrom(session, before)
	if model := batchModel(report); model != "" {
		session.reply(MsgBatchModel, escapeMarkdown(model))
	}
}

func imageName(p PendingImage, i int) string {
	if p.FileName != "" {
		return p.FileName
	}
	return fmt.Sprintf("görsel %d", i+1)
}

// batchModel returns the first model that answered a non-cached request.
func batchModel(report board.BatchReport) string {
	for _, o := range report.Outcomes {
		if o.Model != "" && !o.Cached {
			return o.Model
		}
	}
	return ""
}

// failureReason maps a processing error to the text shown next to the image name.
func failureReason(err error) string {
	return escapeMarkdown(board.FailureReason(err))
}
