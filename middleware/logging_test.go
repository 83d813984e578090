package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/reqlog/logger"
)

// serve runs one request through the middleware with a fresh State attached.
func serve(t *testing.T, m *RequestLoggerMiddleware, rec *recordingLogger, handler http.Handler) *httptest.ResponseRecorder {
	t.Helper()

	chain := Attach(rec)(m.Handler(handler))
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/things?limit=5", nil)
	chain.ServeHTTP(w, r)
	return w
}

func TestRequestLoggerEmitsStartAndCompletion(t *testing.T) {
	rec := newRecordingLogger()
	m := NewRequestLogger(rec, Options{})

	serve(t, m, rec, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("made"))
	}))

	records := rec.all()
	require.Len(t, records, 2)

	start := records[0]
	assert.Equal(t, logger.InfoLevel, start.level)
	assert.Equal(t, "<-- GET /things?limit=5", start.msg)
	req, ok := start.fields["req"].(logger.Fields)
	require.True(t, ok)
	assert.Equal(t, http.MethodGet, req["method"])
	assert.Equal(t, "/things?limit=5", req["url"])

	completion := records[1]
	assert.Equal(t, logger.InfoLevel, completion.level)
	assert.Regexp(t, `^--> GET /things\?limit=5 201 \d+ms$`, completion.msg)
	res, ok := completion.fields["res"].(logger.Fields)
	require.True(t, ok)
	assert.Equal(t, http.StatusCreated, res["status"])
	assert.Equal(t, int64(4), res["length"])
	assert.NotContains(t, completion.fields, "err")

	duration, ok := completion.fields["duration"].(int64)
	require.True(t, ok)
	assert.GreaterOrEqual(t, duration, int64(0))
}

func TestRequestLoggerStatusLevels(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   logger.Level
	}{
		{name: "2xx is info", status: http.StatusOK, want: logger.InfoLevel},
		{name: "3xx is info", status: http.StatusFound, want: logger.InfoLevel},
		{name: "4xx is warn", status: http.StatusNotFound, want: logger.WarnLevel},
		{name: "5xx is error", status: http.StatusBadGateway, want: logger.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newRecordingLogger()
			m := NewRequestLogger(rec, Options{})

			serve(t, m, rec, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			records := rec.all()
			require.Len(t, records, 2)
			assert.Equal(t, tt.want, records[1].level)
		})
	}
}

func TestRequestLoggerPanicPropagates(t *testing.T) {
	rec := newRecordingLogger()
	m := NewRequestLogger(rec, Options{})
	boom := errors.New("boom")

	chain := Attach(rec)(m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(boom)
	})))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/panic", nil)
	require.PanicsWithValue(t, boom, func() {
		chain.ServeHTTP(w, r)
	})

	// The completion record is still emitted, carries the error, and is
	// reported at error severity since no status was written.
	records := rec.all()
	require.Len(t, records, 2)
	completion := records[1]
	assert.Equal(t, logger.ErrorLevel, completion.level)
	assert.Equal(t, boom, completion.fields["err"])
	res := completion.fields["res"].(logger.Fields)
	assert.Equal(t, http.StatusInternalServerError, res["status"])
}

func TestRequestLoggerSetError(t *testing.T) {
	rec := newRecordingLogger()
	m := NewRequestLogger(rec, Options{})
	failed := errors.New("downstream dependency failed")

	serve(t, m, rec, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		SetError(r.Context(), failed)
		w.WriteHeader(http.StatusBadGateway)
	}))

	records := rec.all()
	require.Len(t, records, 2)
	assert.Equal(t, failed, records[1].fields["err"])
	assert.Equal(t, logger.ErrorLevel, records[1].level)
}

func TestRequestLoggerHookComposition(t *testing.T) {
	rec := newRecordingLogger()
	m := NewRequestLogger(rec, Options{
		UpdateFields: func(f logger.Fields) logger.Fields {
			f["service"] = "api"
			return nil
		},
		UpdateRequestFields: func(f logger.Fields) logger.Fields {
			f["phase"] = "request"
			f["request-only"] = true
			return nil
		},
		UpdateResponseFields: func(f logger.Fields, err error) logger.Fields {
			f["phase"] = "response"
			f["failed"] = err != nil
			return nil
		},
	})

	serve(t, m, rec, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	records := rec.all()
	require.Len(t, records, 2)

	start, completion := records[0], records[1]
	assert.Equal(t, "api", start.fields["service"])
	assert.Equal(t, "api", completion.fields["service"])
	assert.Equal(t, "request", start.fields["phase"])
	assert.Equal(t, "response", completion.fields["phase"])
	assert.Equal(t, false, completion.fields["failed"])
	// request-phase additions never leak into the completion record
	assert.NotContains(t, completion.fields, "request-only")
}

func TestRequestLoggerHookReplacement(t *testing.T) {
	rec := newRecordingLogger()
	m := NewRequestLogger(rec, Options{
		UpdateRequestFields: func(f logger.Fields) logger.Fields {
			return logger.Fields{"replaced": true}
		},
	})

	serve(t, m, rec, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	records := rec.all()
	require.Len(t, records, 2)
	assert.Equal(t, logger.Fields{"replaced": true}, records[0].fields)
	// the completion record is built fresh; the replacement only affected
	// the start record
	assert.Contains(t, records[1].fields, "req")
	assert.Contains(t, records[1].fields, "res")
}

func TestRequestLoggerHookPanicDoesNotBlockEmission(t *testing.T) {
	rec := newRecordingLogger()
	m := NewRequestLogger(rec, Options{
		UpdateFields: func(f logger.Fields) logger.Fields {
			panic("bad hook")
		},
		UpdateResponseFields: func(f logger.Fields, err error) logger.Fields {
			f["resilient"] = true
			return nil
		},
	})

	serve(t, m, rec, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	// one hook failure record per phase, plus the two lifecycle records
	records := rec.all()
	require.Len(t, records, 4)
	assert.Equal(t, logger.ErrorLevel, records[0].level)
	assert.Equal(t, "log fields hook panicked", records[0].msg)
	assert.Equal(t, logger.InfoLevel, records[1].level)
	assert.Equal(t, logger.ErrorLevel, records[2].level)
	assert.Equal(t, true, records[3].fields["resilient"])
}

func TestRequestLoggerClearsLoggerAfterCompletion(t *testing.T) {
	rec := newRecordingLogger()
	m := NewRequestLogger(rec, Options{})

	var st *State
	serve(t, m, rec, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st = GetStateFromContext(r.Context())
	}))

	require.NotNil(t, st)
	before := len(rec.all())
	st.Logger().Emit(logger.InfoLevel, nil, "stale use")
	assert.Len(t, rec.all(), before, "cleared logger must not reach the sink")
}

func TestRequestLoggerDurationFieldOverride(t *testing.T) {
	rec := newRecordingLogger()
	m := NewRequestLogger(rec, Options{DurationField: "elapsed_ms"})

	serve(t, m, rec, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	records := rec.all()
	require.Len(t, records, 2)
	assert.Contains(t, records[1].fields, "elapsed_ms")
	assert.NotContains(t, records[1].fields, "duration")
}

func TestRequestLoggerWithoutAttachedState(t *testing.T) {
	rec := newRecordingLogger()
	m := NewRequestLogger(rec, Options{})

	// no Attach in the chain; the middleware creates its own state
	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		Time(r.Context(), "inner")
		TimeEnd(r.Context(), "inner")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	records := rec.all()
	require.Len(t, records, 3)
	assert.Equal(t, logger.TraceLevel, records[1].level)
}
