package engine

import (
	"context"
	"fmt"
	"reflect"
	"strconv"

	"github.com/goliatone/go-tagview/pkg/html"
)

// Options is the render options bag handed to template functions. No keys
// are reserved.
type Options = html.Options

// TemplateFunc is the canonical template function signature. Other
// supported shapes are adapted to it by Classify.
type TemplateFunc func(ctx context.Context, opts Options) (any, error)

// Defaulter wraps a module whose real template sits behind a default
// export, e.g. a package level struct bundling several views.
type Defaulter interface {
	Default() any
}

// ModuleKind classifies a loaded module.
type ModuleKind uint8

const (
	ModuleInvalid ModuleKind = iota
	ModuleString
	ModuleNumber
	ModuleResult
	ModuleDeferred
	ModuleFunc
)

func (k ModuleKind) String() string {
	switch k {
	case ModuleString:
		return "string"
	case ModuleNumber:
		return "number"
	case ModuleResult:
		return "template result"
	case ModuleDeferred:
		return "deferred"
	case ModuleFunc:
		return "function"
	default:
		return "invalid"
	}
}

// Classify reports the kind of v and, for functions, the adapted
// TemplateFunc. A Defaulter is unwrapped when v itself is not usable.
func Classify(v any) (ModuleKind, TemplateFunc) {
	return classify(unwrap(v))
}

func unwrap(v any) any {
	if kind, _ := classify(v); kind != ModuleInvalid {
		return v
	}
	if d, ok := v.(Defaulter); ok {
		return d.Default()
	}
	return v
}

func classify(v any) (ModuleKind, TemplateFunc) {
	if _, ok := formatNumber(v); ok {
		return ModuleNumber, nil
	}
	switch x := v.(type) {
	case string:
		return ModuleString, nil
	case *html.TemplateResult:
		if x == nil {
			return ModuleInvalid, nil
		}
		return ModuleResult, nil
	case *html.Future:
		if x == nil {
			return ModuleInvalid, nil
		}
		return ModuleDeferred, nil
	case TemplateFunc:
		return ModuleFunc, x
	case func(context.Context, Options) (any, error):
		return ModuleFunc, x
	case func(Options) (any, error):
		return ModuleFunc, func(_ context.Context, opts Options) (any, error) {
			return x(opts)
		}
	case func(Options) any:
		return ModuleFunc, func(_ context.Context, opts Options) (any, error) {
			return x(opts), nil
		}
	case func(Options) *html.TemplateResult:
		return ModuleFunc, func(_ context.Context, opts Options) (any, error) {
			return x(opts), nil
		}
	case func(Options) string:
		return ModuleFunc, func(_ context.Context, opts Options) (any, error) {
			return x(opts), nil
		}
	case func(Options) *html.Future:
		return ModuleFunc, func(_ context.Context, opts Options) (any, error) {
			return x(opts), nil
		}
	case func(context.Context, Options) *html.TemplateResult:
		return ModuleFunc, func(ctx context.Context, opts Options) (any, error) {
			return x(ctx, opts), nil
		}
	case func() any:
		return ModuleFunc, func(context.Context, Options) (any, error) {
			return x(), nil
		}
	case func() *html.TemplateResult:
		return ModuleFunc, func(context.Context, Options) (any, error) {
			return x(), nil
		}
	case func() string:
		return ModuleFunc, func(context.Context, Options) (any, error) {
			return x(), nil
		}
	}
	return ModuleInvalid, nil
}

func formatNumber(v any) (string, bool) {
	switch x := v.(type) {
	case int:
		return strconv.Itoa(x), true
	case int8:
		return strconv.FormatInt(int64(x), 10), true
	case int16:
		return strconv.FormatInt(int64(x), 10), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case uint:
		return strconv.FormatUint(uint64(x), 10), true
	case uint8:
		return strconv.FormatUint(uint64(x), 10), true
	case uint16:
		return strconv.FormatUint(uint64(x), 10), true
	case uint32:
		return strconv.FormatUint(uint64(x), 10), true
	case uint64:
		return strconv.FormatUint(x, 10), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	}
	return "", false
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	if reflect.TypeOf(v).Kind() == reflect.Func {
		return fmt.Sprintf("function %T", v)
	}
	return fmt.Sprintf("%T", v)
}
