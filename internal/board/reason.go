package board

import (
	"errors"

	"github.com/raine/mural-table-bot/internal/llm"
)

// Failure reasons shown next to the image name.
const (
	ReasonUndecodable = "görsel okunamadı"
	ReasonTimeout     = "model zaman aşımına uğradı"
	ReasonMalformed   = "model yanıtı tablo verisi değil"
	ReasonEmpty       = "model boş yanıt verdi"
	ReasonModelCall   = "modele ulaşılamadı"
)

// MsgNoData is reported for an image the model found nothing in.
const MsgNoData = "Veri çekilemedi (Resim net olmayabilir)."

// FailureReason maps a processing error to a user-facing reason.
func FailureReason(err error) string {
	switch {
	case err == nil:
		return ReasonModelCall
	case errors.Is(err, ErrUndecodableImage):
		return ReasonUndecodable
	case errors.Is(err, llm.ErrTimeout):
		return ReasonTimeout
	case errors.Is(err, llm.ErrMalformedResponse):
		return ReasonMalformed
	case errors.Is(err, llm.ErrEmptyResponse):
		return ReasonEmpty
	case errors.Is(err, llm.ErrModelCall), errors.Is(err, llm.ErrAllModelsFailed):
		return ReasonModelCall
	}
	return err.Error()
}
