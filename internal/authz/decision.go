package authz

import "github.com/gin-gonic/gin"

// Decision is the outcome of evaluating one or more actions for a request.
// It lives only for the request and is attached to the gin context so
// downstream handlers can see why access was granted.
type Decision struct {
	Allowed          bool     `json:"allowed"`
	ValidationErrors []string `json:"validationErrors,omitempty"`
	MatchedRule      string   `json:"matchedRule,omitempty"`
}

const decisionContextKey = "authz_decision"

func setDecision(c *gin.Context, d Decision) {
	c.Set(decisionContextKey, d)
}

// DecisionFromGin returns the decision recorded by the guard middleware.
func DecisionFromGin(c *gin.Context) (Decision, bool) {
	v, ok := c.Get(decisionContextKey)
	if !ok {
		return Decision{}, false
	}
	d, ok := v.(Decision)
	return d, ok
}
