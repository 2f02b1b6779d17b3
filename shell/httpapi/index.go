package httpapi

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/AntonStoeckl/fakersql-go/fakersql"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type indexPage struct {
	Locales      []fakersql.Locale
	MaxBatchSize int
	Error        string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page := indexPage{MaxBatchSize: s.maxBatchSize}
	status := http.StatusOK

	locales, err := s.service.GetLocales(r.Context())
	if err != nil {
		status = statusFor(err)
		page.Error = errorMessage(err)
	} else {
		page.Locales = locales
	}

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, page); err != nil {
		s.logger.ErrorContext(r.Context(), logMsgWriteFailed, logAttrError, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logger.WarnContext(r.Context(), logMsgWriteFailed, logAttrError, err)
	}
}
