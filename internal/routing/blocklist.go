package routing

import (
	"fmt"

	"github.com/Knetic/govaluate"
)

// BlocklistRule denies a payment when its expression evaluates true.
type BlocklistRule struct {
	Name       string
	Expression string
}

type compiledBlock struct {
	name string
	expr *govaluate.EvaluableExpression
}

// Blocklist guards payments before any connector is contacted.
type Blocklist struct {
	rules []compiledBlock
}

// NewBlocklist compiles the deny rules.
func NewBlocklist(rules []BlocklistRule) (*Blocklist, error) {
	compiled := make([]compiledBlock, 0, len(rules))
	for _, r := range rules {
		if r.Expression == "" {
			return nil, fmt.Errorf("blocklist rule %q has an empty expression", r.Name)
		}
		expr, err := govaluate.NewEvaluableExpression(r.Expression)
		if err != nil {
			return nil, fmt.Errorf("failed to compile blocklist rule %q: %w", r.Name, err)
		}
		compiled = append(compiled, compiledBlock{name: r.Name, expr: expr})
	}
	return &Blocklist{rules: compiled}, nil
}

// Check returns the name of the first rule that blocks the payment, or
// the empty string when the payment may proceed.
func (b *Blocklist) Check(pc PaymentContext) (string, error) {
	if b == nil {
		return "", nil
	}
	params := pc.parameters()
	for _, rule := range b.rules {
		result, err := rule.expr.Evaluate(params)
		if err != nil {
			return "", fmt.Errorf("blocklist rule %q evaluation: %w", rule.name, err)
		}
		if blocked, ok := result.(bool); ok && blocked {
			return rule.name, nil
		}
	}
	return "", nil
}
