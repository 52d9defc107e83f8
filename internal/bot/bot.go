package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/mural-table-bot/internal/board"
	"github.com/raine/mural-table-bot/internal/llm"
	"github.com/raine/mural-table-bot/internal/storage"
	"github.com/rs/zerolog/log"
)

// BotAPI defines the interface for Telegram bot API operations.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Bot is the main Telegram bot handler.
type Bot struct {
	tg         BotAPI
	state      BotState
	store      storage.Store
	processor  *board.Processor
	downloader *ImageDownloader
	adminID    int64

	modelLister llm.ModelLister
	models      []string

	batchHandler *BatchHandler
}

// NewBot creates a new Bot instance.
func NewBot(tg BotAPI, store storage.Store, adminID int64) *Bot {
	bot := &Bot{
		tg:         tg,
		store:      store,
		adminID:    adminID,
		downloader: NewImageDownloader(),
	}

	bot.state = bot.NewBotState()
	bot.batchHandler = NewBatchHandler(tg, bot.downloader)

	return bot
}

// SetAnalyzer sets the vision analyzer used for screenshots. models is the
// substitution order the analyzer tries and is only used for display.
func (b *Bot) SetAnalyzer(analyzer llm.Analyzer, models []string) {
	b.processor = board.NewProcessor(analyzer)
	b.batchHandler.processor = b.processor
	b.models = models
}

// SetModelLister enables the /modeller command.
func (b *Bot) SetModelLister(lister llm.ModelLister) {
	b.modelLister = lister
}

// Shutdown stops all session workers.
func (b *Bot) Shutdown() {
	b.state.Shutdown()
}

// HandleUpdate is the main message router.
// It dispatches messages to the appropriate session worker for sequential processing.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	b.dispatchUpdate(ctx, update, false)
}

// handleUpdateSync is like handleUpdate but waits for message processing to complete.
// Used in tests where we need synchronous behavior.
func (b *Bot) handleUpdateSync(ctx context.Context, update tgbotapi.Update) {
	b.dispatchUpdate(ctx, update, true)
}

// dispatchUpdate routes updates to the appropriate session worker.
// If sync is true, it waits for message processing to complete.
func (b *Bot) dispatchUpdate(ctx context.Context, update tgbotapi.Update, sync bool) {
	var userId int64

	// Determine user ID from the update
	if update.CallbackQuery != nil {
		userId = update.CallbackQuery.From.ID
	} else if update.Message != nil && update.Message.From != nil {
		userId = update.Message.From.ID
	} else {
		return
	}

	// Check if user is allowed (admin always allowed)
	// MUST be before getUserSession to prevent memory exhaustion from random user IDs
	if userId != b.adminID {
		if b.store == nil {
			return
		}
		allowed, err := b.store.IsUserAllowed(userId)
		if err != nil {
			log.Error().Err(err).Int64("userId", userId).Msg("whitelist check failed")
			return // Fail closed
		}
		if !allowed {
			return // Silent drop
		}
	}

	session := b.state.getUserSession(userId)

	// Helper to send sync or async based on flag
	send := func(msg SessionMessage) {
		if sync {
			session.SendSync(msg)
		} else {
			session.Send(msg)
		}
	}

	// Dispatch to session worker based on update type
	if update.CallbackQuery != nil {
		send(SessionMessage{
			Type:          "callback",
			Ctx:           ctx,
			CallbackQuery: update.CallbackQuery,
		})
		return
	}

	message := update.Message
	log.Info().Str("text", message.Text).Str("caption", message.Caption).Msg("got message")

	switch {
	case len(message.Photo) > 0:
		send(SessionMessage{Type: "photo", Ctx: ctx, Message: message})
	case message.Document != nil:
		send(SessionMessage{Type: "document", Ctx: ctx, Message: message})
	default:
		send(SessionMessage{Type: "text", Ctx: ctx, Message: message})
	}
}

// HandleSessionMessage implements MessageHandler interface.
// This is called by the session worker goroutine for sequential processing.
// No mutex locking is needed here since only one goroutine accesses session state.
func (b *Bot) HandleSessionMessage(ctx context.Context, session *UserSession, msg SessionMessage) {
	switch msg.Type {
	case "callback":
		b.handleCallbackQuery(msg.CallbackQuery)
	case "photo":
		b.batchHandler.HandlePhoto(ctx, session, msg.Message)
	case "document":
		b.batchHandler.HandleDocument(ctx, session, msg.Message)
	case "text":
		b.handleCommand(ctx, session, msg.Message)
	case "album_timeout":
		b.batchHandler.ProcessAlbumTimeout(msg.Ctx, session, msg.AlbumBuffer)
	}
}

// handleCommand processes bot commands.
// Called from session worker - no locking needed.
func (b *Bot) handleCommand(ctx context.Context, session *UserSession, message *tgbotapi.Message) {
	command, args := parseCommand(message.Text)
	switch command {
	case "/start":
		session.reply(MsgStartPrompt)
	case "/lista":
		b.sendCards(session)
	case "/csv":
		b.sendCSV(session)
	case "/temizle":
		session.reset()
		session.reply(MsgTableCleared)
	case "/sil":
		b.handleRemoveCommand(session, args)
	case "/duzenle":
		b.handleEditCommand(session, args)
	case "/modeller":
		b.handleModelsCommand(ctx, session)
	case "/admin":
		b.handleAdminCommand(session, strings.Join(args, " "))
	default:
		session.reply(MsgUnknownInput)
	}
}

// handleCallbackQuery answers inline keyboard presses. Card buttons are URL
// buttons, so there is nothing else to route.
func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	callback := tgbotapi.NewCallback(query.ID, "")
	if _, err := b.tg.Request(callback); err != nil {
		log.Debug().Err(err).Msg("failed to answer callback")
	}
}

// handleModelsCommand lists the models that can generate content.
func (b *Bot) handleModelsCommand(ctx context.Context, session *UserSession) {
	if b.modelLister == nil {
		session.reply(MsgAnalysisNotAvail)
		return
	}
	models, err := b.modelLister.ListModels(ctx)
	if err != nil {
		session.reply(MsgModelsListError, escapeMarkdown(err.Error()))
		return
	}
	models = llm.GenerationModels(models)
	if len(models) == 0 {
		session.reply(MsgModelsNone)
		return
	}

	var sb strings.Builder
	sb.WriteString(MsgModelsHeader)
	for _, m := range models {
		fmt.Fprintf(&sb, "• `%s`\n", llm.NormalizeModelName(m.Name))
	}
	if len(b.models) > 0 {
		fmt.Fprintf(&sb, MsgModelsActive, strings.Join(b.models, " → "))
	}
	session.replyWithMessage(tgbotapi.MessageConfig{
		Text:      sb.String(),
		ParseMode: tgbotapi.ModeMarkdown,
	})
}

// handleAdminCommand handles /admin command with subcommands.
// Only the admin user can use this command (defense in depth check).
func (b *Bot) handleAdminCommand(session *UserSession, args string) {
	// Defense in depth: verify caller is admin even though whitelist check passed
	if session.userId != b.adminID {
		return // Silent drop for non-admin users
	}

	parts := strings.Fields(args)
	if len(parts) == 0 {
		session.reply(MsgAdminUsage)
		return
	}

	switch parts[0] {
	case "users":
		if len(parts) < 2 {
			session.reply(MsgAdminUsage)
			return
		}
		b.handleAdminUsersCommand(session, parts[1], parts[2:])
	default:
		session.reply(MsgAdminUsage)
	}
}

// handleAdminUsersCommand handles /admin users subcommands.
func (b *Bot) handleAdminUsersCommand(session *UserSession, action string, args []string) {
	switch action {
	case "add":
		if len(args) < 1 {
			session.reply(MsgAdminUserAddUsage)
			return
		}
		userID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			session.reply(MsgAdminUserInvalidID)
			return
		}
		if err := b.store.AddAllowedUser(userID, session.userId); err != nil {
			session.replyWithError(err)
			return
		}
		session.reply(MsgAdminUserAdded, userID)

	case "remove":
		if len(args) < 1 {
			session.reply(MsgAdminUserRemoveUsage)
			return
		}
		userID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			session.reply(MsgAdminUserInvalidID)
			return
		}
		if err := b.store.RemoveAllowedUser(userID); err != nil {
			session.replyWithError(err)
			return
		}
		session.reply(MsgAdminUserRemoved, userID)

	case "list":
		users, err := b.store.GetAllowedUsers()
		if err != nil {
			session.replyWithError(err)
			return
		}
		if len(users) == 0 {
			session.reply(MsgAdminNoUsers)
			return
		}
		var sb strings.Builder
		sb.WriteString(MsgAdminAllowedUsers)
		for _, u := range users {
			sb.WriteString(fmt.Sprintf("• `%d` (eklenme %s)\n", u.TelegramID, u.AddedAt.Format("2006-01-02")))
		}
		session.reply(sb.String())

	default:
		session.reply(MsgAdminUsage)
	}
}
