package utils

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"
)

type UtilsTestSuite struct {
	suite.Suite
}

func TestUtilsSuite(t *testing.T) {
	suite.Run(t, new(UtilsTestSuite))
}

type sampleStrategyConfig struct {
	Period     int     `json:"period" jsonschema:"title=Period,minimum=5,maximum=200"`
	Multiplier float64 `json:"multiplier" jsonschema:"title=Multiplier"`
	StrictMode bool    `json:"strict_mode"`
}

type wrappedConfig struct {
	Name     string               `json:"name"`
	Strategy sampleStrategyConfig `json:"strategy"`
}

func (suite *UtilsTestSuite) TestGetSchemaFromConfig() {
	schema, err := GetSchemaFromConfig(sampleStrategyConfig{})
	suite.Require().NoError(err)
	suite.NotEmpty(schema)

	var decoded map[string]interface{}
	suite.Require().NoError(json.Unmarshal([]byte(schema), &decoded))

	// The struct is expanded in place rather than hidden behind a $ref.
	suite.NotContains(decoded, "$ref")
	suite.Contains(decoded, "properties")
	suite.Contains(schema, "period")
	suite.Contains(schema, "strict_mode")
	suite.Equal(false, decoded["additionalProperties"])
}

func (suite *UtilsTestSuite) TestGetSchemaFromNestedConfig() {
	schema, err := GetSchemaFromConfig(wrappedConfig{})
	suite.Require().NoError(err)

	var decoded map[string]interface{}
	suite.Require().NoError(json.Unmarshal([]byte(schema), &decoded))
	suite.Contains(schema, "strategy")
}

func (suite *UtilsTestSuite) TestGetSchemaFromPointer() {
	schema, err := GetSchemaFromConfig(&sampleStrategyConfig{})
	suite.Require().NoError(err)
	suite.Contains(schema, "multiplier")
}
