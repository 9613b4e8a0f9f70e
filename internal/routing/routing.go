// Package routing is the routing-engine collaborator of the orchestrator:
// ordered govaluate rules choose a connector per payment, and a blocklist
// of deny rules can reject a payment before any connector is called.
package routing

import (
	"fmt"

	"github.com/Knetic/govaluate"

	"github.com/yourorg/payment-router/internal/domain"
)

// CallKind discriminates ConnectorCallType.
type CallKind string

const (
	CallSingle          CallKind = "single"
	CallSessionMultiple CallKind = "session_multiple"
	CallSkip            CallKind = "skip"
)

// ConnectorCallType is the routing decision handed back to the pipeline.
type ConnectorCallType struct {
	Kind       CallKind
	Connector  string
	Connectors []string
}

// Single routes to one connector.
func Single(connector string) ConnectorCallType {
	return ConnectorCallType{Kind: CallSingle, Connector: connector}
}

// SessionMultiple fans a session flow across several connectors.
func SessionMultiple(connectors []string) ConnectorCallType {
	return ConnectorCallType{Kind: CallSessionMultiple, Connectors: connectors}
}

// Skip means no connector call is needed for this operation.
func Skip() ConnectorCallType {
	return ConnectorCallType{Kind: CallSkip}
}

// PaymentContext is the rule-evaluation input: the resolved facts routing
// and blocklist expressions may reference.
type PaymentContext struct {
	Amount        int64
	Currency      string
	PaymentMethod domain.PaymentMethodKind
	CardBin       string
	Country       string
	MerchantID    string
}

// govaluate compares numbers as float64 only, so amount is widened here.
func (pc PaymentContext) parameters() map[string]any {
	return map[string]any{
		"amount":         float64(pc.Amount),
		"currency":       pc.Currency,
		"payment_method": string(pc.PaymentMethod),
		"card_bin":       pc.CardBin,
		"country":        pc.Country,
		"merchant_id":    pc.MerchantID,
	}
}

// Rule is one routing rule: when Expression evaluates true, route to
// Connector. Rules are evaluated in order; first match wins.
type Rule struct {
	Name       string
	Expression string
	Connector  string
}

type compiledRule struct {
	name      string
	expr      *govaluate.EvaluableExpression
	connector string
}

// Engine is the rule-driven routing engine.
type Engine struct {
	rules            []compiledRule
	defaultConnector string
}

// NewEngine compiles the rule expressions up front so evaluation cannot
// fail on syntax at request time.
func NewEngine(rules []Rule, defaultConnector string) (*Engine, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		if r.Expression == "" {
			return nil, fmt.Errorf("routing rule %q has an empty expression", r.Name)
		}
		if r.Connector == "" {
			return nil, fmt.Errorf("routing rule %q names no connector", r.Name)
		}
		expr, err := govaluate.NewEvaluableExpression(r.Expression)
		if err != nil {
			return nil, fmt.Errorf("failed to compile routing rule %q: %w", r.Name, err)
		}
		compiled = append(compiled, compiledRule{name: r.Name, expr: expr, connector: r.Connector})
	}
	return &Engine{rules: compiled, defaultConnector: defaultConnector}, nil
}

// PerformRouting chooses the connector call for a payment. With no
// matching rule the default connector applies; with no default the call
// is skipped.
func (e *Engine) PerformRouting(pc PaymentContext) (ConnectorCallType, error) {
	params := pc.parameters()
	for _, rule := range e.rules {
		result, err := rule.expr.Evaluate(params)
		if err != nil {
			return ConnectorCallType{}, fmt.Errorf("routing rule %q evaluation: %w", rule.name, err)
		}
		if matched, ok := result.(bool); ok && matched {
			return Single(rule.connector), nil
		}
	}
	if e.defaultConnector == "" {
		return Skip(), nil
	}
	return Single(e.defaultConnector), nil
}

// SessionConnectors returns the fan-out set for session flows: every
// connector any rule can route to, plus the default.
func (e *Engine) SessionConnectors() []string {
	seen := make(map[string]bool)
	var out []string
	for _, rule := range e.rules {
		if !seen[rule.connector] {
			seen[rule.connector] = true
			out = append(out, rule.connector)
		}
	}
	if e.defaultConnector != "" && !seen[e.defaultConnector] {
		out = append(out, e.defaultConnector)
	}
	return out
}
