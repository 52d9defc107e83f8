package bot

// =============================================================================
// General messages
// =============================================================================

const (
	MsgOk            = `Tamam!`
	MsgUnexpectedErr = `Beklenmeyen hata: %s`
	MsgStartPrompt   = "🎨 Mural projelerinin ekran görüntülerini gönder, tabloya ekleyeyim.\n\nKomutlar için menüye bak."
	MsgUnknownInput  = "Fotoğraf veya görsel dosyası gönder. Tablo için /lista, CSV için /csv."
)

// =============================================================================
// Batch processing messages
// =============================================================================

const (
	MsgBatchStarted      = "⏳ %d görsel işleniyor…"
	MsgBatchProgress     = "⏳ %d/%d işlendi…"
	MsgBatchDone         = "✅ İşlem Tamamlandı! %d yeni kayıt eklendi. Tabloda toplam %d kayıt var."
	MsgBatchNothingAdded = "İşlem Tamamlandı! Yeni kayıt eklenmedi."
	MsgImageNoData       = "⚠️ %s: %s"
	MsgImageFailed       = "❌ %s: %s"
	MsgImageDownloadFail = "❌ %s: görsel indirilemedi"
	MsgUnsupportedFile   = "Sadece JPG ve PNG görselleri işlenebilir."
	MsgRecordsRejected   = "⚠️ %s: %d öğe tabloya uymadığı için atlandı."
	MsgBatchModel        = "🤖 Model: %s"
	MsgAnalysisNotAvail  = "Görsel analizi kullanılamıyor"
)

// =============================================================================
// Table messages
// =============================================================================

const (
	MsgTableEmpty      = "📋 Tablo boş. Önce görsel gönder."
	MsgTableHeader     = "📋 *Proje Listesi* (%d kayıt, tarihe göre)"
	MsgTableCleared    = "🗑 Tablo temizlendi."
	MsgRowRemoved      = "🗑 %d. kayıt silindi."
	MsgRowUpdated      = "✏️ %d. kayıt güncellendi: %s = %s"
	MsgRowNotFound     = "%d numaralı kayıt yok. Numaralar için /lista."
	MsgRemoveUsage     = "Kullanım: `/sil <numara>`"
	MsgEditUsage       = "Kullanım: `/duzenle <numara> <alan> <değer>`\nAlanlar: Proje, Tarih, Bütçe, Konum, Link, Notlar, Durum"
	MsgInvalidDate     = "Tarih anlaşılamadı. Örnek: 01.05.2025"
	MsgInvalidStatus   = "Geçersiz durum. Seçenekler: %s"
	MsgCSVCaption      = "📎 %d kayıt"
	MsgModelsHeader    = "🤖 *Kullanılabilir modeller:*\n"
	MsgModelsListError = "Model listesi alınamadı: %s"
	MsgModelsNone      = "İçerik üretebilen model bulunamadı."
	MsgModelsActive    = "\nSıra: %s"
)

// Card button labels
const (
	BtnAddToCalendar = "📅 Takvime ekle"
	BtnOpenLink      = "🔗 Git"
)

// =============================================================================
// Admin command messages
// =============================================================================

const (
	MsgAdminUsage           = "Kullanım:\n`/admin users add <user_id>`\n`/admin users remove <user_id>`\n`/admin users list`"
	MsgAdminUserAddUsage    = "Kullanım: `/admin users add <user_id>`"
	MsgAdminUserRemoveUsage = "Kullanım: `/admin users remove <user_id>`"
	MsgAdminUserInvalidID   = "Geçersiz kullanıcı ID. Bir sayı gir."
	MsgAdminUserAdded       = "✅ Kullanıcı `%d` eklendi."
	MsgAdminUserRemoved     = "🗑 Kullanıcı `%d` silindi."
	MsgAdminNoUsers         = "İzinli kullanıcı yok."
	MsgAdminAllowedUsers    = "*İzinli kullanıcılar:*\n"
)
