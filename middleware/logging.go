package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/upb/reqlog/logger"
	"github.com/upb/reqlog/observe"
)

// Options configures a RequestLoggerMiddleware. The zero value gives the
// default behavior described on each field.
type Options struct {
	// DurationField names the completion-record field holding the elapsed
	// time in milliseconds. Defaults to "duration".
	DurationField string

	// LevelFunc picks the completion record's severity. The default maps
	// status >= 500 to error, status >= 400 to warn, and everything else to
	// info. When the handler chain failed before writing a header, the
	// status passed in is 500.
	LevelFunc func(r *http.Request, status int, err error) logger.Level

	// UpdateFields runs for both the start and completion records.
	UpdateFields UpdateFieldsFunc

	// UpdateRequestFields runs for the start record only, after
	// UpdateFields.
	UpdateRequestFields UpdateFieldsFunc

	// UpdateResponseFields runs for the completion record only, after
	// UpdateFields, and receives the captured error when there is one.
	UpdateResponseFields UpdateResponseFieldsFunc

	// FormatRequestMessage builds the start record message.
	// Defaults to "<-- METHOD URL".
	FormatRequestMessage func(r *http.Request, fields logger.Fields) string

	// FormatResponseMessage builds the completion record message.
	// Defaults to "--> METHOD URL STATUS DURATIONms".
	FormatResponseMessage func(r *http.Request, status int, duration time.Duration, fields logger.Fields) string
}

// RequestLoggerMiddleware emits one start record and exactly one completion
// record per request. The completion record is emitted only after the
// downstream handler chain has returned and the response is fully written,
// and carries the handler's error when the chain panicked or recorded one
// via SetError.
type RequestLoggerMiddleware struct {
	base logger.Logger
	opts Options
}

// NewRequestLogger creates a RequestLoggerMiddleware. base is used when no
// State has been attached upstream; otherwise the request logger from the
// State is used.
func NewRequestLogger(base logger.Logger, opts Options) *RequestLoggerMiddleware {
	if base == nil {
		base = logger.Nop()
	}
	if opts.DurationField == "" {
		opts.DurationField = "duration"
	}
	if opts.LevelFunc == nil {
		opts.LevelFunc = defaultLevel
	}
	if opts.FormatRequestMessage == nil {
		opts.FormatRequestMessage = defaultRequestMessage
	}
	if opts.FormatResponseMessage == nil {
		opts.FormatResponseMessage = defaultResponseMessage
	}
	return &RequestLoggerMiddleware{base: base, opts: opts}
}

// Handler wraps next with request/response logging.
func (m *RequestLoggerMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		st := GetStateFromContext(ctx)
		if st == nil {
			st = NewState(m.base)
			ctx = WithState(ctx, st)
		}
		lg := st.Logger()

		fields := logger.Fields{"req": requestFields(r)}
		fields = runHook(lg, m.opts.UpdateFields, fields)
		fields = runHook(lg, m.opts.UpdateRequestFields, fields)
		lg.Emit(logger.InfoLevel, fields, m.opts.FormatRequestMessage(r, fields))

		start := time.Now()
		w := observe.New(rw)

		var panicked bool
		var panicValue any
		func() {
			defer func() {
				if v := recover(); v != nil {
					panicked = true
					panicValue = v
					st.SetError(recoveredError(v))
				}
			}()
			next.ServeHTTP(w, r.WithContext(ctx))
		}()

		// The completion callback is registered only after the start record
		// has been written, so per-request record order is guaranteed.
		w.OnComplete(func() {
			m.complete(r, w, st, start)
		})
		w.Complete()

		if panicked {
			panic(panicValue)
		}
	})
}

// complete emits the completion record and releases the request logger.
func (m *RequestLoggerMiddleware) complete(r *http.Request, w observe.Writer, st *State, start time.Time) {
	lg := st.Logger()
	err := st.Err()

	status := w.StatusCode()
	if status == 0 {
		// Nothing was written. A captured error means the outer recovery
		// layer will answer with a 500.
		if err != nil {
			status = http.StatusInternalServerError
		} else {
			status = http.StatusOK
		}
	}

	duration := time.Since(start)
	fields := logger.Fields{
		"req": requestFields(r),
		"res": logger.Fields{
			"status": status,
			"length": w.BytesWritten(),
		},
		m.opts.DurationField: duration.Milliseconds(),
	}
	if err != nil {
		fields["err"] = err
	}

	fields = runHook(lg, m.opts.UpdateFields, fields)
	fields = runResponseHook(lg, m.opts.UpdateResponseFields, fields, err)

	level := m.opts.LevelFunc(r, status, err)
	lg.Emit(level, fields, m.opts.FormatResponseMessage(r, status, duration, fields))

	st.clearLogger()
}

// requestFields builds the request descriptor embedded in both records.
func requestFields(r *http.Request) logger.Fields {
	return logger.Fields{
		"method": r.Method,
		"url":    r.URL.String(),
		"host":   r.Host,
		"remote": r.RemoteAddr,
	}
}

// recoveredError converts a recovered panic value to an error.
func recoveredError(v any) error {
	if err, ok := v.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", v)
}

func defaultLevel(_ *http.Request, status int, _ error) logger.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return logger.ErrorLevel
	case status >= http.StatusBadRequest:
		return logger.WarnLevel
	default:
		return logger.InfoLevel
	}
}

func defaultRequestMessage(r *http.Request, _ logger.Fields) string {
	return fmt.Sprintf("<-- %s %s", r.Method, r.URL.String())
}

func defaultResponseMessage(r *http.Request, status int, duration time.Duration, _ logger.Fields) string {
	return fmt.Sprintf("--> %s %s %d %dms", r.Method, r.URL.String(), status, duration.Milliseconds())
}
