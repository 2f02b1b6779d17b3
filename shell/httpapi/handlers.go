package httpapi

import (
	"net/http"

	"github.com/AntonStoeckl/fakersql-go/fakersql"
	"github.com/AntonStoeckl/fakersql-go/fakersql/postgresengine"
)

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"

	msgInvalidIterations = "Iterations must be between 1 and 10000"
)

type generateResponse struct {
	Locale         string              `json:"locale"`
	Seed           int64               `json:"seed"`
	BatchIndex     int64               `json:"batch_index"`
	BatchSize      int                 `json:"batch_size"`
	NextBatchIndex int64               `json:"next_batch_index"`
	Users          []fakersql.FakeUser `json:"users"`
}

type healthResponse struct {
	Success          bool                      `json:"success"`
	Status           string                    `json:"status"`
	LocalesAvailable *int                      `json:"locales_available,omitempty"`
	Pool             *postgresengine.PoolStats `json:"pool,omitempty"`
	Error            string                    `json:"error,omitempty"`
}

func (s *Server) handleLocales(w http.ResponseWriter, r *http.Request) {
	locales, err := s.service.GetLocales(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeData(w, r, locales)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	source, err := generationSource(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	locales, err := s.service.GetLocales(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	params, err := fakersql.ValidateParams(rawGenerationParams(source), locales, s.maxBatchSize)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	users, err := s.service.GenerateUsers(r.Context(), params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if users == nil {
		users = []fakersql.FakeUser{}
	}

	s.writeJSONWithETag(w, r, envelope{
		Success: true,
		Data: generateResponse{
			Locale:         params.Locale,
			Seed:           params.Seed,
			BatchIndex:     params.BatchIndex,
			BatchSize:      params.BatchSize,
			NextBatchIndex: params.BatchIndex + 1,
			Users:          users,
		},
	})
}

func (s *Server) handleBenchmark(w http.ResponseWriter, r *http.Request) {
	query := valuesSource(r.URL.Query())
	locale, _ := query.get(paramLocale, defaultLocale).(string)

	locales, err := s.service.GetLocales(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if !fakersql.ValidateLocale(locale, locales) {
		s.writeError(w, r, fakersql.NewInvalidLocaleError(locale))
		return
	}

	iterations, ok := fakersql.ValidateIterations(query.get(paramIterations, defaultIterations))
	if !ok {
		s.writeError(w, r, &fakersql.ValidationError{Field: paramIterations, Message: msgInvalidIterations})
		return
	}

	result, err := s.service.RunBenchmark(r.Context(), locale, iterations)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeData(w, r, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	locales, err := s.service.GetLocales(r.Context())
	if err != nil {
		s.logger.WarnContext(r.Context(), logMsgRequestFailed, logAttrError, errorMessage(err))
		s.writeJSON(w, r, http.StatusServiceUnavailable, healthResponse{
			Success: false,
			Status:  statusUnhealthy,
			Error:   errorMessage(err),
		})

		return
	}

	count := len(locales)
	response := healthResponse{
		Success:          true,
		Status:           statusHealthy,
		LocalesAvailable: &count,
	}

	if s.stats != nil {
		stats := s.stats.Stats()
		response.Pool = &stats
	}

	s.writeJSON(w, r, http.StatusOK, response)
}
