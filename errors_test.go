package prefs

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapRuleErrorCreatesMetadata(t *testing.T) {
	base := errors.New("boom")
	err := wrapRuleError("expr", "value > max", "display.zoom", base)

	var ruleErr *RuleError
	if !errors.As(err, &ruleErr) {
		t.Fatalf("expected RuleError, got %T", err)
	}
	if ruleErr.Engine != "expr" {
		t.Fatalf("expected engine expr, got %q", ruleErr.Engine)
	}
	if ruleErr.Expr != "value > max" {
		t.Fatalf("expected expression metadata, got %q", ruleErr.Expr)
	}
	if ruleErr.Path != "display.zoom" {
		t.Fatalf("expected path metadata, got %q", ruleErr.Path)
	}
	if !errors.Is(err, base) {
		t.Fatalf("wrapped error should unwrap to base error")
	}
	if !strings.Contains(err.Error(), `expr="value > max"`) {
		t.Fatalf("expected expression in message, got %q", err.Error())
	}
}

func TestWrapRuleErrorAugmentsExisting(t *testing.T) {
	base := errors.New("compile failure")
	existing := &RuleError{
		Engine: "expr",
		Err:    base,
	}

	err := wrapRuleError("cel", "value", "speech.rate", existing)
	if !errors.Is(err, base) {
		t.Fatalf("expected base error to unwrap")
	}
	if existing.Engine != "expr" {
		t.Fatalf("existing engine should not be overwritten, got %q", existing.Engine)
	}
	if existing.Expr != "value" {
		t.Fatalf("expression should be filled, got %q", existing.Expr)
	}
	if existing.Path != "speech.rate" {
		t.Fatalf("path should be filled, got %q", existing.Path)
	}
}

func TestWrapEvaluatorErrorKeepsPrefixedErrors(t *testing.T) {
	prefixed := errors.New("prefs: already wrapped")
	if got := wrapEvaluatorError("cel", prefixed); got != prefixed {
		t.Fatalf("expected prefixed error returned as is, got %v", got)
	}
	wrapped := wrapEvaluatorError("cel", errors.New("raw"))
	if wrapped == nil || !strings.HasPrefix(wrapped.Error(), "prefs: cel evaluator:") {
		t.Fatalf("expected engine prefix, got %v", wrapped)
	}
}
