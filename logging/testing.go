package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

// testAppender routes lines through tb.Log so each one is attributed to the test that wrote it.
type testAppender struct {
	tb testing.TB
}

// NewTestAppender returns an Appender that writes formatted lines to tb.
func NewTestAppender(tb testing.TB) Appender {
	return &testAppender{tb}
}

func (tapp *testAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	tapp.tb.Helper()
	line, err := formatEntry(entry, fields)
	tapp.tb.Log(line)
	return err
}

func (tapp *testAppender) Sync() error {
	return nil
}
