package prefs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidConfig wraps every construction-time configuration failure.
	ErrInvalidConfig = errors.New("prefs: invalid config")
	// ErrDuplicatePath indicates two settings share the same path.
	ErrDuplicatePath = errors.New("prefs: duplicate setting path")
	// ErrInvalidRule indicates a schema rule failed to compile.
	ErrInvalidRule = errors.New("prefs: invalid schema rule")
	// ErrUnknownOrigin indicates an origin name outside the closed set.
	ErrUnknownOrigin = errors.New("prefs: unknown origin")
	// ErrMissingPath indicates an alteration request without a path.
	ErrMissingPath = errors.New("prefs: alteration path is required")
	// ErrSchemaViolation indicates a value rejected by its setting schema.
	ErrSchemaViolation = errors.New("prefs: value violates schema")
	// ErrNoEvaluator indicates a rule was configured but no evaluator is available.
	ErrNoEvaluator = errors.New("prefs: evaluator not configured")
)

// RuleError captures rule metadata alongside the originating error.
type RuleError struct {
	Engine string
	Expr   string
	Path   string
	Err    error
}

func (e *RuleError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("prefs: %s rule %s path=%s: %v", e.Engine, describeExpression(e.Expr), e.Path, e.Err)
}

func (e *RuleError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}

	var ruleErr *RuleError
	if errors.As(err, &ruleErr) {
		return err
	}

	if strings.HasPrefix(err.Error(), "prefs:") {
		return err
	}
	return fmt.Errorf("prefs: %s evaluator: %w", engine, err)
}

func wrapRuleError(engine, expr, path string, err error) error {
	if err == nil {
		return nil
	}

	var ruleErr *RuleError
	if errors.As(err, &ruleErr) {
		if ruleErr.Engine == "" {
			ruleErr.Engine = engine
		}
		if ruleErr.Expr == "" {
			ruleErr.Expr = expr
		}
		if ruleErr.Path == "" {
			ruleErr.Path = path
		}
		return ruleErr
	}

	return &RuleError{
		Engine: engine,
		Expr:   expr,
		Path:   path,
		Err:    err,
	}
}
