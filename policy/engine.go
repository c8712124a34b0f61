package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Engine is the OPA policy engine used to admit uploads.
type Engine struct {
	query rego.PreparedEvalQuery
}

// UploadInput is the policy input for one uploaded file or audio clip.
type UploadInput struct {
	Kind      string `json:"kind"`
	Filename  string `json:"filename"`
	Extension string `json:"extension"`
	SizeBytes int64  `json:"size_bytes"`
	MaxBytes  int64  `json:"max_bytes"`
	Endpoint  string `json:"endpoint"`
}

// NewEngine creates a new policy engine with the given policy content.
// The module must define data.upload_policy.result.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.upload_policy.result"),
		rego.Module("upload_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate runs the policy against input.
// Returns: decision (allow, block), reason (optional), error
func (e *Engine) Evaluate(ctx context.Context, input interface{}) (string, string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return "allow", "default", nil
	}

	// The rule may return a bare decision string or {decision, reason}.
	switch val := results[0].Expressions[0].Value.(type) {
	case string:
		return val, "", nil
	case map[string]interface{}:
		decision, _ := val["decision"].(string)
		reason, _ := val["reason"].(string)
		if decision == "" {
			return "", "", fmt.Errorf("policy result has no decision: %v", val)
		}
		return decision, reason, nil
	default:
		return "", "", fmt.Errorf("unexpected policy result type %T", val)
	}
}

// DefaultPolicy blocks oversized uploads and executable files.
const DefaultPolicy = `
package upload_policy

default result = {"decision": "allow", "reason": ""}

blocked_extensions = {".exe", ".dll", ".so", ".bat", ".cmd", ".sh", ".msi", ".apk", ".jar", ".scr"}

result = {"decision": "block", "reason": "too_large"} {
	input.max_bytes > 0
	input.size_bytes > input.max_bytes
} else = {"decision": "block", "reason": "executable"} {
	blocked_extensions[input.extension]
}
`
