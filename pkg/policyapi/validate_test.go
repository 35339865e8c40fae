package policyapi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validPayload = `{
  "policies": [
    {
      "metadata": {"name": "checkout-delays"},
      "spec": {
        "selector": {"service": "checkout", "namespace": "prod"},
        "rules": [
          {
            "match": {"path": {"prefix": "/api"}},
            "fault": {
              "abort": {"httpStatus": 503, "body": "unavailable"},
              "percentage": 50,
              "start_delay_ms": 1000,
              "duration_seconds": 60
            }
          }
        ]
      }
    }
  ]
}`

func TestValidate_AcceptsWellFormedPayload(t *testing.T) {
	assert.NoError(t, Validate([]byte(validPayload)))
}

func TestValidate_RejectsMissingPolicies(t *testing.T) {
	err := Validate([]byte(`{}`))
	assert.Error(t, err)
}

func TestValidate_RejectsMissingFault(t *testing.T) {
	err := Validate([]byte(`{
		"policies": [{"metadata": {"name": "x"}, "spec": {"rules": [{"match": {}}]}}]
	}`))
	assert.Error(t, err)
}

func TestValidate_RejectsPercentageOutOfRange(t *testing.T) {
	err := Validate([]byte(`{
		"policies": [{"metadata": {"name": "x"}, "spec": {"rules": [{"fault": {"percentage": 150}}]}}]
	}`))
	assert.Error(t, err)
}

func TestValidate_RejectsInvalidJSON(t *testing.T) {
	err := Validate([]byte(`not json`))
	assert.Error(t, err)
}

func TestParseAndValidate_DecodesRules(t *testing.T) {
	p, err := ParseAndValidate([]byte(validPayload))
	require.NoError(t, err)
	require.Len(t, p.Policies, 1)
	assert.Equal(t, "checkout-delays", p.Policies[0].Metadata.Name)
	assert.Equal(t, "checkout", p.Policies[0].Spec.Selector.Service)
	rule := p.Policies[0].Spec.Rules[0]
	assert.Equal(t, "/api", rule.Match.Path.Prefix)
	require.NotNil(t, rule.Fault.Abort)
	assert.Equal(t, uint32(503), rule.Fault.Abort.HTTPStatus)
	assert.Equal(t, uint32(50), rule.Fault.Percentage)
}

func TestAbortSpec_UnmarshalJSON_TolerantOfSnakeCase(t *testing.T) {
	var a AbortSpec
	require.NoError(t, json.Unmarshal([]byte(`{"http_status": 500, "body": "x"}`), &a))
	assert.Equal(t, uint32(500), a.HTTPStatus)

	var b AbortSpec
	require.NoError(t, json.Unmarshal([]byte(`{"httpStatus": 502}`), &b))
	assert.Equal(t, uint32(502), b.HTTPStatus)
}

func TestAbortSpec_UnmarshalJSON_CamelCaseTakesPrecedence(t *testing.T) {
	var a AbortSpec
	require.NoError(t, json.Unmarshal([]byte(`{"httpStatus": 503, "http_status": 500}`), &a))
	assert.Equal(t, uint32(503), a.HTTPStatus)
}
