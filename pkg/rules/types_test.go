package rules

import (
	"net/http"
	"testing"

	"github.com/hfi-sidecar/engine/pkg/matching"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAbortAction_ResolvedBody_Default(t *testing.T) {
	var a *AbortAction
	assert.Equal(t, DefaultAbortBody, a.ResolvedBody())

	a = &AbortAction{HTTPStatus: 503}
	assert.Equal(t, DefaultAbortBody, a.ResolvedBody())

	a = &AbortAction{HTTPStatus: 503, Body: "custom"}
	assert.Equal(t, "custom", a.ResolvedBody())
}

func TestFault_Validate(t *testing.T) {
	assert.NoError(t, (&Fault{Percentage: 100}).Validate())
	assert.Error(t, (&Fault{Percentage: 101}).Validate())
}

func TestCompiledRuleSet_FirstMatch(t *testing.T) {
	rs := &CompiledRuleSet{
		Version: "v1",
		Rules: []CompiledRule{
			{
				Name:  "rule-a",
				Match: matching.MatchCondition{Path: &matching.PathMatcher{Exact: "/api/a"}},
			},
			{
				Name:  "rule-b",
				Match: matching.MatchCondition{Path: &matching.PathMatcher{Prefix: "/api"}},
			},
		},
	}

	req := matching.RequestView{Path: "/api/a", Method: "GET", Headers: http.Header{}}
	rule, ok := rs.FirstMatch(req)
	require.True(t, ok)
	assert.Equal(t, "rule-a", rule.Name)

	req2 := matching.RequestView{Path: "/api/other", Method: "GET", Headers: http.Header{}}
	rule2, ok2 := rs.FirstMatch(req2)
	require.True(t, ok2)
	assert.Equal(t, "rule-b", rule2.Name)
}

func TestCompiledRuleSet_NoMatch(t *testing.T) {
	rs := &CompiledRuleSet{}
	_, ok := rs.FirstMatch(matching.RequestView{Path: "/x", Method: "GET"})
	assert.False(t, ok)
}

func TestCompiledRuleSet_NilRuleSet(t *testing.T) {
	var rs *CompiledRuleSet
	_, ok := rs.FirstMatch(matching.RequestView{})
	assert.False(t, ok)
}
