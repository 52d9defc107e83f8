// Package web serves the upload form and the editable project table.
package web

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/raine/mural-table-bot/internal/board"
	"github.com/raine/mural-table-bot/internal/mural"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	// DefaultMaxImageSize limits a single uploaded file.
	DefaultMaxImageSize = 20 << 20
	maxMemory           = 32 << 20
	uploadField         = "images"
)

// Handler serves the web front end. Each browser session owns one board.
type Handler struct {
	sessions     *SessionManager
	processor    *board.Processor
	tmpl         *template.Template
	maxImageSize int64
}

func NewHandler(sessions *SessionManager, processor *board.Processor) (*Handler, error) {
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Handler{
		sessions:     sessions,
		processor:    processor,
		tmpl:         tmpl,
		maxImageSize: DefaultMaxImageSize,
	}, nil
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("http request")
	}))

	r.Get("/", h.handleIndex)
	r.Post("/upload", h.withSession(h.handleUpload))
	r.Post("/rows", h.withSession(h.handleAddRow))
	r.Post("/rows/{index}", h.withSession(h.handleUpdateRow))
	r.Post("/rows/{index}/delete", h.withSession(h.handleDeleteRow))
	r.Post("/clear", h.withSession(h.handleClear))
	r.Get("/export.csv", h.handleExport)
	return r
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, s *Session)

// withSession runs a mutating handler under the session lock and redirects
// back to the table.
func (h *Handler) withSession(fn sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := h.sessions.Get(w, r)
		s.mu.Lock()
		defer s.mu.Unlock()
		fn(w, r, s)
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Get(w, r)
	s.mu.Lock()
	data := newPageData(s)
	s.report = nil
	s.flash = ""
	s.mu.Unlock()

	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, "index.html", data); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("failed to render page")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request, s *Session) {
	if h.processor == nil {
		s.flash = MsgAnalysisNotAvail
		return
	}
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		s.flash = MsgUploadFailed
		hlog.FromRequest(r).Warn().Err(err).Msg("failed to parse upload")
		return
	}
	files := r.MultipartForm.File[uploadField]
	if len(files) == 0 {
		s.flash = MsgNoFiles
		return
	}

	images := make([]board.Image, 0, len(files))
	for _, fh := range files {
		data, err := h.readUpload(fh)
		images = append(images, board.Image{Name: fh.Filename, Data: data, Err: err})
	}

	report := h.processor.Run(r.Context(), s.Board, images, nil)
	s.report = &report
}

var errFileTooLarge = errors.New(MsgFileTooLarge)

func (h *Handler) readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, h.maxImageSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > h.maxImageSize {
		return nil, errFileTooLarge
	}
	return data, nil
}

func (h *Handler) handleAddRow(w http.ResponseWriter, r *http.Request, s *Session) {
	s.Board.Append(mural.Record{})
}

func rowIndex(r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	return index, err == nil
}

func (h *Handler) handleUpdateRow(w http.ResponseWriter, r *http.Request, s *Session) {
	index, ok := rowIndex(r)
	if !ok {
		s.flash = MsgRowNotFound
		return
	}
	if err := r.ParseForm(); err != nil {
		s.flash = MsgUploadFailed
		return
	}
	rec, err := s.Board.Get(index)
	if err != nil {
		s.flash = MsgRowNotFound
		return
	}

	for _, col := range gridColumns(s.Board.Records()) {
		values, ok := r.PostForm[col]
		if !ok || values[0] == displayValue(rec, col) {
			continue
		}
		if err := rec.Set(col, values[0]); err != nil {
			s.flash = editError(err)
			return
		}
	}
	if err := s.Board.Replace(index, rec); err != nil {
		s.flash = MsgRowNotFound
	}
}

func editError(err error) string {
	switch {
	case errors.Is(err, mural.ErrInvalidDate):
		return MsgInvalidDate
	case errors.Is(err, mural.ErrInvalidStatus):
		return MsgInvalidStatus
	}
	return err.Error()
}

func (h *Handler) handleDeleteRow(w http.ResponseWriter, r *http.Request, s *Session) {
	index, ok := rowIndex(r)
	if !ok {
		s.flash = MsgRowNotFound
		return
	}
	if err := s.Board.Remove(index); err != nil {
		s.flash = MsgRowNotFound
	}
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request, s *Session) {
	s.Board.Clear()
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Get(w, r)
	s.mu.Lock()
	records := mural.SortByDate(s.Board.Records())
	s.mu.Unlock()

	var buf bytes.Buffer
	if err := mural.WriteCSV(&buf, records); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("failed to write csv")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, mural.ExportFileName))
	w.Write(buf.Bytes())
}
