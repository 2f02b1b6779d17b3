package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	headerRequestID = "X-Request-ID"

	logMsgRequest      = "http request"
	logAttrRequestID   = "request_id"
	logAttrMethod      = "method"
	logAttrPath        = "path"
	logAttrStatus      = "status"
	logAttrDurationMS  = "duration_ms"
	routeUnmatched     = "unmatched"
	maxRequestIDLength = 128
)

type requestIDKey struct{}

// RequestID returns the request ID stored by the middleware, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// middleware assigns a request ID, then logs and measures every request.
func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(headerRequestID)
		if id == "" || len(id) > maxRequestIDLength {
			id = newRequestID()
		}

		w.Header().Set(headerRequestID, id)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id))

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		duration := time.Since(start)

		route := r.Pattern
		if route == "" {
			route = routeUnmatched
		}

		s.logger.InfoContext(
			r.Context(),
			logMsgRequest,
			logAttrRequestID, id,
			logAttrMethod, r.Method,
			logAttrPath, r.URL.Path,
			logAttrStatus, recorder.status,
			logAttrDurationMS, float64(duration.Nanoseconds())/1e6,
		)

		if s.metrics != nil {
			s.metrics.RecordDuration(metricRequestDuration, duration, map[string]string{
				labelMethod: r.Method,
				labelRoute:  route,
				labelStatus: strconv.Itoa(recorder.status),
			})
		}
	})
}

func newRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}
