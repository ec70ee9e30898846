package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

func (suite *ErrorTestSuite) TestNew() {
	err := New(ErrCodeInvalidParameter, "bad ratio")

	suite.Equal(ErrCodeInvalidParameter, err.Code)
	suite.Equal("bad ratio", err.Message)
	suite.Nil(err.Cause)
	suite.Equal("[100] bad ratio", err.Error())
}

func (suite *ErrorTestSuite) TestNewf() {
	err := Newf(ErrCodeInvalidSymbol, "unknown symbol %s", "005930")

	suite.Equal(ErrCodeInvalidSymbol, err.Code)
	suite.Equal("unknown symbol 005930", err.Message)
}

func (suite *ErrorTestSuite) TestWrap() {
	cause := fmt.Errorf("broken pipe")
	err := Wrap(ErrCodeQueryFailed, "failed to execute query", cause)

	suite.Equal(cause, err.Unwrap())
	suite.Contains(err.Error(), "broken pipe")
	suite.Contains(err.Error(), "[203]")
}

func (suite *ErrorTestSuite) TestWrapf() {
	cause := fmt.Errorf("no such file")
	err := Wrapf(ErrCodeDataLoadFailed, cause, "failed to load bars for %s", "000660")

	suite.Equal(ErrCodeDataLoadFailed, err.Code)
	suite.Contains(err.Message, "000660")
	suite.True(Is(err, cause))
}

func (suite *ErrorTestSuite) TestGetCode() {
	err := New(ErrCodeDataNotFound, "no bars")
	wrapped := fmt.Errorf("outer: %w", err)

	suite.Equal(ErrCodeDataNotFound, GetCode(wrapped))
	suite.Equal(ErrCodeUnknown, GetCode(fmt.Errorf("plain")))
}

func (suite *ErrorTestSuite) TestHasCode() {
	err := Wrap(ErrCodeRecorderWriteFailed, "write failed", fmt.Errorf("disk full"))

	suite.True(HasCode(err, ErrCodeRecorderWriteFailed))
	suite.False(HasCode(err, ErrCodeRecorderInitFailed))
}

func (suite *ErrorTestSuite) TestAs() {
	err := New(ErrCodeSimulationFailed, "run failed")
	wrapped := fmt.Errorf("outer: %w", err)

	var target *Error
	suite.True(As(wrapped, &target))
	suite.Equal(ErrCodeSimulationFailed, target.Code)
}
