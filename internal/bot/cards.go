package bot

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/mural-table-bot/internal/board"
	"github.com/raine/mural-table-bot/internal/mural"
	"github.com/rs/zerolog/log"
)

const (
	maxCaptionLen = 1024
	maxTextLen    = 4096
	maxNotesLen   = 300
)

// formatCard renders a record as the Markdown text of one card. number is
// the 1-based position in the date-sorted list.
func formatCard(number int, r mural.Record) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*%d. %s*\n", number, escapeMarkdown(r.Title()))
	if d := r.DisplayDate(); d != "" {
		fmt.Fprintf(&sb, "📅 %s\n", escapeMarkdown(d))
	}
	if r.Budget != "" {
		fmt.Fprintf(&sb, "💰 %s\n", escapeMarkdown(r.Budget))
	}
	if r.Location != "" {
		fmt.Fprintf(&sb, "📍 %s\n", escapeMarkdown(r.Location))
	}
	if r.Link != "" && !r.HasLink() {
		fmt.Fprintf(&sb, "🔗 %s\n", escapeMarkdown(r.Link))
	}
	fmt.Fprintf(&sb, "🏷 %s\n", escapeMarkdown(r.Status.Display()))
	for _, e := range r.Extra {
		if e.Value == "" {
			continue
		}
		fmt.Fprintf(&sb, "%s: %s\n", escapeMarkdown(e.Key), escapeMarkdown(e.Value))
	}
	if r.Notes != "" {
		fmt.Fprintf(&sb, "\n_%s_", escapeMarkdown(truncate(r.Notes, maxNotesLen)))
	}
	return strings.TrimSpace(sb.String())
}

// cardKeyboard returns the URL buttons of a card, or nil when there are none.
func cardKeyboard(r mural.Record) *tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	if link := r.CalendarLink(); link != mural.CalendarLinkUnavailable {
		row = append(row, tgbotapi.NewInlineKeyboardButtonURL(BtnAddToCalendar, link))
	}
	if r.HasLink() {
		row = append(row, tgbotapi.NewInlineKeyboardButtonURL(BtnOpenLink, strings.TrimSpace(r.Link)))
	}
	if len(row) == 0 {
		return nil
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(row)
	return &markup
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-1]) + "…"
}

// sendCard sends one record. Records that came from a Telegram photo are
// sent as that photo with a caption; a failed photo send falls back to text.
func sendCard(session *UserSession, number int, r mural.Record) {
	text := formatCard(number, r)
	keyboard := cardKeyboard(r)

	if fileID, ok := strings.CutPrefix(r.Source, photoSourcePrefix); ok && utf8.RuneCountInString(text) <= maxCaptionLen {
		photo := tgbotapi.NewPhoto(session.userId, tgbotapi.FileID(fileID))
		photo.Caption = text
		photo.ParseMode = tgbotapi.ModeMarkdown
		if keyboard != nil {
			photo.ReplyMarkup = keyboard
		}
		_, err := session.sender.Send(photo)
		if err == nil {
			return
		}
		log.Warn().Err(err).Int64("userId", session.userId).Msg("failed to send card photo, sending text")
	}

	msg := tgbotapi.MessageConfig{
		Text:                  truncate(text, maxTextLen),
		ParseMode:             tgbotapi.ModeMarkdown,
		DisableWebPagePreview: true,
	}
	if keyboard != nil {
		msg.ReplyMarkup = keyboard
	}
	session.replyWithMessage(msg)
}

// sendCardsFrom sends cards for the records appended at or after index
// from, numbered by their position in the date-sorted list.
func sendCardsFrom(session *UserSession, from int) {
	for i, e := range session.board.SortedEntries() {
		if e.Index >= from {
			sendCard(session, i+1, e.Record)
		}
	}
}

// sendCards sends the whole list sorted by date.
func (b *Bot) sendCards(session *UserSession) {
	entries := session.board.SortedEntries()
	if len(entries) == 0 {
		session.reply(MsgTableEmpty)
		return
	}
	session.reply(MsgTableHeader, len(entries))
	for i, e := range entries {
		sendCard(session, i+1, e.Record)
	}
}

// sendCSV sends the date-sorted list as a CSV document.
func (b *Bot) sendCSV(session *UserSession) {
	records := mural.SortByDate(session.board.Records())
	var buf bytes.Buffer
	if err := mural.WriteCSV(&buf, records); err != nil {
		session.replyWithError(err)
		return
	}
	doc := tgbotapi.NewDocument(session.userId, tgbotapi.FileBytes{
		Name:  mural.ExportFileName,
		Bytes: buf.Bytes(),
	})
	doc.Caption = fmt.Sprintf(MsgCSVCaption, len(records))
	if _, err := session.sender.Send(doc); err != nil {
		session.replyWithError(fmt.Errorf("failed to send csv: %w", err))
	}
}

// boardIndex maps a 1-based card number to the index of the record on the
// board.
func boardIndex(b *board.Board, number int) (int, bool) {
	entries := b.SortedEntries()
	if number < 1 || number > len(entries) {
		return 0, false
	}
	return entries[number-1].Index, true
}

// handleRemoveCommand handles /sil <number>.
func (b *Bot) handleRemoveCommand(session *UserSession, args []string) {
	if len(args) != 1 {
		session.reply(MsgRemoveUsage)
		return
	}
	number, err := strconv.Atoi(args[0])
	if err != nil {
		session.reply(MsgRemoveUsage)
		return
	}
	index, ok := boardIndex(session.board, number)
	if !ok {
		session.reply(MsgRowNotFound, number)
		return
	}
	if err := session.board.Remove(index); err != nil {
		if errors.Is(err, board.ErrNoSuchRow) {
			session.reply(MsgRowNotFound, number)
			return
		}
		session.replyWithError(err)
		return
	}
	session.reply(MsgRowRemoved, number)
}

// handleEditCommand handles /duzenle <number> <field> <value...>. An empty
// value clears the field.
func (b *Bot) handleEditCommand(session *UserSession, args []string) {
	if len(args) < 2 {
		session.reply(MsgEditUsage)
		return
	}
	number, err := strconv.Atoi(args[0])
	if err != nil {
		session.reply(MsgEditUsage)
		return
	}
	index, ok := boardIndex(session.board, number)
	if !ok {
		session.reply(MsgRowNotFound, number)
		return
	}

	column, ok := mural.ResolveColumn(args[1])
	if !ok {
		rec, err := session.board.Get(index)
		if err != nil || rec.Get(args[1]) == "" {
			session.reply(MsgEditUsage)
			return
		}
		column = args[1]
	}
	value := strings.Join(args[2:], " ")

	err = session.board.Update(index, column, value)
	switch {
	case err == nil:
	case errors.Is(err, mural.ErrInvalidDate):
		session.reply(MsgInvalidDate)
		return
	case errors.Is(err, mural.ErrInvalidStatus):
		session.reply(MsgInvalidStatus, statusChoices())
		return
	default:
		session.replyWithError(err)
		return
	}

	session.reply(MsgRowUpdated, number, escapeMarkdown(column), escapeMarkdown(value))
	// The date may have changed the sort position.
	if rec, err := session.board.Get(index); err == nil {
		sendCard(session, sortedNumber(session.board, index), rec)
	}
}

func sortedNumber(b *board.Board, index int) int {
	for i, e := range b.SortedEntries() {
		if e.Index == index {
			return i + 1
		}
	}
	return index + 1
}

func statusChoices() string {
	labels := make([]string, len(mural.Statuses))
	for i, s := range mural.Statuses {
		labels[i] = string(s)
	}
	return strings.Join(labels, ", ")
}
