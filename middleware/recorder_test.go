package middleware

import (
	"github.com/upb/reqlog/logger"
)

// record is one captured log emission.
type record struct {
	level  logger.Level
	fields logger.Fields
	msg    string
	bound  logger.Fields
}

// recordingLogger captures emissions for assertions. Children share the
// parent's record slice and accumulate bound fields, mirroring the child
// semantics of the real backend.
type recordingLogger struct {
	bound   logger.Fields
	records *[]record
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{records: &[]record{}}
}

func (l *recordingLogger) Emit(level logger.Level, fields logger.Fields, msg string) {
	*l.records = append(*l.records, record{
		level:  level,
		fields: fields,
		msg:    msg,
		bound:  l.bound,
	})
}

func (l *recordingLogger) Child(fields logger.Fields) logger.Logger {
	merged := logger.Fields{}
	for k, v := range l.bound {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &recordingLogger{bound: merged, records: l.records}
}

func (l *recordingLogger) all() []record {
	return *l.records
}
