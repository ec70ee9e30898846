package logger

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type LoggerTestSuite struct {
	suite.Suite
}

func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerTestSuite))
}

func (suite *LoggerTestSuite) TestNewLogger() {
	logger, err := NewLogger()
	suite.NoError(err)
	suite.Require().NotNil(logger)
	suite.NotNil(logger.Logger)
}

func (suite *LoggerTestSuite) TestNewNopLogger() {
	logger := NewNopLogger()
	suite.Require().NotNil(logger)

	// A nop logger accepts every call and writes nothing.
	logger.Info("discarded", zap.String("symbol", "005930"))
	logger.Debug("discarded")
	suite.NoError(logger.Sync())
}

func (suite *LoggerTestSuite) TestSyncNilInnerLogger() {
	logger := &Logger{Logger: nil}
	suite.NoError(logger.Sync())
}

func (suite *LoggerTestSuite) TestLoggingDoesNotPanic() {
	logger, err := NewLogger()
	suite.Require().NoError(err)

	logger.Info("info message", zap.Int("days", 252))
	logger.Warn("warn message")
	logger.With(zap.String("run_id", "test")).Info("message with fields")
}
