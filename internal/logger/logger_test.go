package logger

import (
	"bytes"
	"log/slog"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type LoggerTest struct {
	suite.Suite
}

func TestLoggerSuite(t *testing.T) { suite.Run(t, new(LoggerTest)) }

func redirect(buf *bytes.Buffer, format, severity string) {
	defaultFactory.format = format
	setLevel(defaultFactory.level, severity)
	defaultLogger = slog.New(defaultFactory.createHandler(buf, ""))
}

func (t *LoggerTest) TestSeverityFiltersBelowThreshold() {
	var buf bytes.Buffer
	redirect(&buf, "text", SeverityWarning)

	Infof("should not appear")
	t.Empty(buf.String())

	Warnf("should appear")
	t.Regexp(regexp.MustCompile("severity=WARNING"), buf.String())
}

func (t *LoggerTest) TestJSONFormatIncludesSeverity() {
	var buf bytes.Buffer
	redirect(&buf, "json", SeverityTrace)

	Tracef("hello %s", "world")
	assert.Contains(t.T(), buf.String(), `"severity":"TRACE"`)
	assert.Contains(t.T(), buf.String(), "hello world")
}

func (t *LoggerTest) TestOffSuppressesEverything() {
	var buf bytes.Buffer
	redirect(&buf, "text", SeverityOff)

	Errorf("should not appear")
	t.Empty(buf.String())
}
