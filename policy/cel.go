// Package policykit evaluates an optional CEL expression against the token
// header and claims. The expression is compiled once at startup; a request
// is allowed through this stage only when the program evaluates to true.
package policykit

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
)

// ErrNonBooleanResult is returned when the expression evaluates to anything
// other than a boolean.
var ErrNonBooleanResult = errors.New("policy expression must evaluate to a boolean value")

// Validator holds a compiled policy program. The zero value (or an empty
// expression) is a no-op that passes every token.
type Validator struct {
	program    cel.Program
	expression string
}

// Compile compiles the policy expression. The expression sees two read-only
// variables: header (decoded JOSE header fields) and claims (decoded token
// payload). An empty or whitespace-only expression yields a pass-through
// validator. A compilation error is fatal to the caller: serving with an
// invalid policy would silently disable the check.
func Compile(expression string) (*Validator, error) {
	if strings.TrimSpace(expression) == "" {
		return &Validator{}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("header", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("claims", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("create policy environment: %w", err)
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile policy expression: %w", issues.Err())
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build policy program: %w", err)
	}
	return &Validator{program: program, expression: expression}, nil
}

// Expression returns the source text of the compiled expression.
func (v *Validator) Expression() string {
	if v == nil {
		return ""
	}
	return v.expression
}

// Enabled reports whether an expression is configured.
func (v *Validator) Enabled() bool { return v != nil && v.program != nil }

// Validate runs the program over the header and claims. Evaluation errors
// (such as an unguarded access to an absent field), non-boolean results,
// and a false result all fail the stage.
func (v *Validator) Validate(header, claims map[string]any) error {
	if v == nil || v.program == nil {
		return nil
	}
	if header == nil {
		header = map[string]any{}
	}
	if claims == nil {
		claims = map[string]any{}
	}
	out, _, err := v.program.Eval(map[string]any{
		"header": header,
		"claims": claims,
	})
	if err != nil {
		return fmt.Errorf("policy evaluation failed: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return ErrNonBooleanResult
	}
	if !result {
		return fmt.Errorf("policy expression %q evaluated to false", v.expression)
	}
	return nil
}
