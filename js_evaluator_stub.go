//go:build !js_eval

package prefs

// Without the js_eval tag no goja runtime is linked in. NewJSEvaluator then
// yields nil and selecting the "js" evaluator fails with ErrNoEvaluator.
func NewJSEvaluator(...JSEvaluatorOption) Evaluator { return nil }

func isJSEvaluator(Evaluator) bool { return false }
