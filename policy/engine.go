// Package policy runs admission policies written in Rego against a cloud
// before it is stored. Policies live under the `cloudctl` package
// namespace and report problems through `deny` sets.
package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/open-policy-agent/opa/v1/rego"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yairfalse/cloudctl/payload"
	"github.com/yairfalse/cloudctl/telemetry"
)

// Query is the namespace every policy module is evaluated under
const Query = "data.cloudctl"

// Input is the document policies see as `input`
type Input struct {
	Cloud     map[string]any `json:"cloud"`
	Mode      string         `json:"mode"`
	Timestamp time.Time      `json:"timestamp"`
}

// Violation is one denial reported by a policy
type Violation struct {
	Policy  string `json:"policy"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// Decision is the combined result of every loaded policy
type Decision struct {
	Violations []Violation `json:"violations"`
}

// Allowed reports whether no policy denied the cloud
func (d Decision) Allowed() bool { return len(d.Violations) == 0 }

// Engine holds compiled policies
type Engine struct {
	mu      sync.RWMutex
	logger  *telemetry.Logger
	queries map[string]rego.PreparedEvalQuery
}

// NewEngine creates an engine with no policies; it allows everything
func NewEngine(logger *telemetry.Logger) *Engine {
	if logger == nil {
		logger = telemetry.Nop()
	}
	return &Engine{
		logger:  logger.Component("policy"),
		queries: make(map[string]rego.PreparedEvalQuery),
	}
}

// LoadPolicy compiles regoCode and registers it under name, replacing any
// policy with the same name
func (e *Engine) LoadPolicy(ctx context.Context, name, regoCode string) error {
	ctx, span := telemetry.Tracer.Start(ctx, "cloudctl.policy.load",
		trace.WithAttributes(attribute.String("policy.name", name)))
	defer span.End()

	query := rego.New(
		rego.Query(Query),
		rego.Module(name+".rego", regoCode),
	)

	prepared, err := query.PrepareForEval(ctx)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to compile policy %s: %w", name, err)
	}

	e.mu.Lock()
	e.queries[name] = prepared
	e.mu.Unlock()

	e.logger.WithContext(ctx).Debug().
		Str("policy_name", name).
		Msg("policy loaded")

	return nil
}

// Policies returns the loaded policy names in order
func (e *Engine) Policies() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.queries))
	for name := range e.queries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuildInput converts a payload into policy input. Secret values are
// masked so policies cannot echo them back in messages.
func BuildInput(p payload.Payload, mode string) (Input, error) {
	data, err := json.Marshal(p.Masked())
	if err != nil {
		return Input{}, err
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return Input{}, err
	}

	return Input{Cloud: doc, Mode: mode, Timestamp: time.Now().UTC()}, nil
}

// Evaluate runs every policy against p. Any evaluation error fails the
// whole decision.
func (e *Engine) Evaluate(ctx context.Context, p payload.Payload, mode string) (Decision, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "cloudctl.policy.evaluate",
		trace.WithAttributes(
			attribute.String("provider", string(p.Provider)),
			attribute.String("cloud.name", p.Name)))
	defer span.End()

	input, err := BuildInput(p, mode)
	if err != nil {
		return Decision{}, fmt.Errorf("build policy input: %w", err)
	}

	decision := Decision{Violations: []Violation{}}
	for _, name := range e.Policies() {
		e.mu.RLock()
		query := e.queries[name]
		e.mu.RUnlock()

		results, err := query.Eval(ctx, rego.EvalInput(input))
		if err != nil {
			span.RecordError(err)
			return Decision{}, fmt.Errorf("evaluate policy %s: %w", name, err)
		}

		for _, res := range results {
			for _, expr := range res.Expressions {
				decision.Violations = append(decision.Violations, collectDenials(name, expr.Value)...)
			}
		}
	}

	for _, v := range decision.Violations {
		telemetry.RecordPolicyViolationEvent(ctx, span, v.Policy, v.Field, v.Message)
	}

	e.logger.WithContext(ctx).Debug().
		Str("cloud_name", p.Name).
		Int("policies", len(e.queries)).
		Int("violations", len(decision.Violations)).
		Msg("policies evaluated")

	return decision, nil
}

// collectDenials walks the namespace document and gathers every `deny`
// set. Entries are either a message string or an object with `field` and
// `msg`.
func collectDenials(policy string, value any) []Violation {
	doc, ok := value.(map[string]any)
	if !ok {
		return nil
	}

	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []Violation
	for _, k := range keys {
		if k == "deny" {
			out = append(out, denials(policy, doc[k])...)
			continue
		}
		out = append(out, collectDenials(policy, doc[k])...)
	}
	return out
}

func denials(policy string, value any) []Violation {
	items, ok := value.([]any)
	if !ok {
		return nil
	}

	var out []Violation
	for _, item := range items {
		switch v := item.(type) {
		case string:
			out = append(out, Violation{Policy: policy, Message: v})
		case map[string]any:
			violation := Violation{Policy: policy}
			violation.Field, _ = v["field"].(string)
			violation.Message, _ = v["msg"].(string)
			if violation.Message == "" {
				violation.Message = fmt.Sprintf("denied by %s", policy)
			}
			out = append(out, violation)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Field != out[j].Field {
			return out[i].Field < out[j].Field
		}
		return out[i].Message < out[j].Message
	})
	return out
}
