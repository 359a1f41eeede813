// File: atbashEE/config/expression.go
package config

import (
	"errors"
	"strings"
)

// ExpressionInterceptor expands ${name} and ${name:default} references in resolved values.
// References are resolved from the outermost stage so they get profile and expression handling too.
// A backslash before a dollar sign produces a literal dollar.
type ExpressionInterceptor struct{}

// NewExpressionInterceptor returns the interceptor. It holds no state.
func NewExpressionInterceptor() *ExpressionInterceptor {
	return &ExpressionInterceptor{}
}

func (e *ExpressionInterceptor) Intercept(ctx Context, name string) (*ConfigValue, error) {
	if ctx.Expanding(name) {
		return nil, &ExpressionError{Name: name, Reference: name, Err: ErrCyclicReference}
	}
	v, err := ctx.Proceed(name)
	if err != nil || v == nil || !hasExpression(v.Value) {
		return v, err
	}
	expanded, err := expand(ctx.WithExpanding(name), name, v.Value)
	if err != nil {
		return nil, err
	}
	out := *v
	out.Value = expanded
	return &out, nil
}

func (e *ExpressionInterceptor) Names(ctx Context) ([]string, error) {
	return ctx.ProceedNames()
}

func hasExpression(s string) bool {
	return strings.Contains(s, "${") || strings.Contains(s, `\$`)
}

// expand substitutes every reference in s. owner is the property whose value is expanded.
func expand(ctx Context, owner, s string) (string, error) {
	if !hasExpression(s) {
		return s, nil
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		switch {
		case s[i] == '\\' && i+1 < len(s) && s[i+1] == '$':
			b.WriteByte('$')
			i += 2
		case s[i] == '$' && i+1 < len(s) && s[i+1] == '{':
			end := closingBrace(s, i+2)
			if end < 0 {
				// unterminated, keep the rest verbatim
				b.WriteString(s[i:])
				return b.String(), nil
			}
			v, err := reference(ctx, owner, s[i+2:end])
			if err != nil {
				return "", err
			}
			b.WriteString(v)
			i = end + 1
		default:
			b.WriteByte(s[i])
			i++
		}
	}
	return b.String(), nil
}

// reference resolves the body of one ${...} marker.
func reference(ctx Context, owner, body string) (string, error) {
	name, def, hasDefault := splitDefault(body)
	if name == "" {
		return "", &ExpressionError{Name: owner, Err: ErrUnresolvedExpression}
	}
	v, err := ctx.Resolve(name)
	if err != nil {
		var exprErr *ExpressionError
		if errors.As(err, &exprErr) {
			return "", err
		}
		return "", &ExpressionError{Name: owner, Reference: name, Err: err}
	}
	if v != nil {
		return v.Value, nil
	}
	if hasDefault {
		return expand(ctx, owner, def)
	}
	return "", &ExpressionError{Name: owner, Reference: name, Err: ErrUnresolvedExpression}
}

// closingBrace returns the index of the brace closing a marker whose body starts at start, or -1.
func closingBrace(s string, start int) int {
	depth := 1
	for j := start; j < len(s); j++ {
		switch {
		case s[j] == '\\' && j+1 < len(s):
			j++
		case s[j] == '$' && j+1 < len(s) && s[j+1] == '{':
			depth++
			j++
		case s[j] == '}':
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}

// splitDefault splits name:default at the first colon outside a nested marker.
func splitDefault(body string) (name, def string, hasDefault bool) {
	depth := 0
	for j := 0; j < len(body); j++ {
		switch {
		case body[j] == '$' && j+1 < len(body) && body[j+1] == '{':
			depth++
			j++
		case body[j] == '}' && depth > 0:
			depth--
		case body[j] == ':' && depth == 0:
			return body[:j], body[j+1:], true
		}
	}
	return body, "", false
}
