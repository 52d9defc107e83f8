package web

const (
	MsgAnalysisNotAvail = "Görsel analizi kullanılamıyor."
	MsgUploadFailed     = "Yükleme okunamadı."
	MsgNoFiles          = "Lütfen en az bir görsel seçin."
	MsgRowNotFound      = "Satır bulunamadı."
	MsgInvalidDate      = "Tarih anlaşılamadı. Örnek: 01.05.2025"
	MsgInvalidStatus    = "Geçersiz durum."
	MsgBatchDone        = "İşlem Tamamlandı!"
	MsgRecordsAdded     = "%d yeni kayıt eklendi."
	MsgRecordsRejected  = "%d öğe tabloya uymadığı için atlandı."
	MsgFileTooLarge     = "dosya çok büyük"
)
