package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/upb/reqlog/logger"
)

// TimerOptions configures a Timer.
type TimerOptions struct {
	// Level is the severity of duration records. Defaults to trace.
	Level logger.Level

	// UpdateFields enriches duration record fields, with the
	// mutate-or-replace contract described on UpdateFieldsFunc.
	UpdateFields UpdateFieldsFunc
}

// Timer measures labeled sub-operations within a request and emits one
// duration record per Time/TimeEnd pair. Any number of labels may be open
// at once; no nesting is enforced and callers are responsible for pairing.
// Misuse produces a warn record, never a failure.
type Timer struct {
	opts TimerOptions
}

// NewTimer creates a Timer. Entries live in the request State, so two
// Timers with different options still share one label namespace per
// request.
func NewTimer(opts TimerOptions) *Timer {
	return &Timer{opts: opts}
}

// Time starts the labeled timer. If the label is already running, a warn
// record is emitted and the start time is overwritten. Without an attached
// State this is a no-op.
func (t *Timer) Time(ctx context.Context, label string) {
	st := GetStateFromContext(ctx)
	if st == nil {
		return
	}

	if _, open := st.timers[label]; open {
		st.Logger().Emit(logger.WarnLevel, logger.Fields{"label": label},
			fmt.Sprintf("time() called for previously used label %s", label))
	}
	st.timers[label] = time.Now()
}

// TimeEnd stops the labeled timer and emits its duration record. Without a
// matching Time call, a warn record is emitted and nothing else happens.
func (t *Timer) TimeEnd(ctx context.Context, label string) {
	st := GetStateFromContext(ctx)
	if st == nil {
		return
	}
	lg := st.Logger()

	startedAt, open := st.timers[label]
	if !open {
		lg.Emit(logger.WarnLevel, logger.Fields{"label": label},
			fmt.Sprintf("timeEnd() called without time() for label %s", label))
		return
	}
	delete(st.timers, label)

	duration := time.Since(startedAt)
	fields := logger.Fields{
		"label":    label,
		"duration": duration.Milliseconds(),
		"msg":      fmt.Sprintf("%s: %dms", label, duration.Milliseconds()),
	}
	fields = runHook(lg, t.opts.UpdateFields, fields)

	// The msg field supplies the record message; hooks may have replaced it.
	msg, _ := fields["msg"].(string)
	delete(fields, "msg")
	lg.Emit(t.opts.Level, fields, msg)
}

// defaultTimer backs the package-level Time and TimeEnd helpers.
var defaultTimer = NewTimer(TimerOptions{})

// Time starts the labeled timer with default options.
func Time(ctx context.Context, label string) {
	defaultTimer.Time(ctx, label)
}

// TimeEnd stops the labeled timer started with Time and emits its duration
// record at trace level.
func TimeEnd(ctx context.Context, label string) {
	defaultTimer.TimeEnd(ctx, label)
}
