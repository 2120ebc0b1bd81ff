package html

import (
	"fmt"
	"math"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindAbsent Kind = iota
	KindText
	KindNumber
	KindBool
	KindNested
	KindSeq
	KindDeferred
	KindOther
)

var kindNames = [...]string{
	KindAbsent:   "absent",
	KindText:     "text",
	KindNumber:   "number",
	KindBool:     "bool",
	KindNested:   "template result",
	KindSeq:      "sequence",
	KindDeferred: "deferred",
	KindOther:    "other",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Value is one interpolation slot. The zero Value is absent.
type Value struct {
	kind   Kind
	text   string
	num    float64
	flag   bool
	nested *TemplateResult
	seq    []Value
	future *Future
	raw    any
}

// Text returns a plain string value. It is escaped when rendered.
func Text(s string) Value {
	return Value{kind: KindText, text: s, raw: s}
}

// Nested returns a value that renders t unescaped.
func Nested(t *TemplateResult) Value {
	if t == nil {
		return Value{}
	}
	return Value{kind: KindNested, nested: t, raw: t}
}

// Seq returns an ordered sequence. Elements are resolved one after the other.
func Seq(values ...Value) Value {
	return Value{kind: KindSeq, seq: values, raw: values}
}

// Deferred returns a value that is awaited before it is resolved.
func Deferred(f *Future) Value {
	if f == nil {
		return Value{}
	}
	return Value{kind: KindDeferred, future: f, raw: f}
}

// ValueOf classifies v. Unknown types become KindOther and render nothing
// unless strict rendering is requested.
func ValueOf(v any) Value {
	switch x := v.(type) {
	case nil:
		return Value{}
	case Value:
		return x
	case string:
		return Text(x)
	case *TemplateResult:
		return Nested(x)
	case *Future:
		return Deferred(x)
	case bool:
		return Value{kind: KindBool, flag: x, raw: x}
	case []Value:
		return Seq(x...)
	case []any:
		out := make([]Value, len(x))
		for i, item := range x {
			out[i] = ValueOf(item)
		}
		return Seq(out...)
	case []string:
		out := make([]Value, len(x))
		for i, item := range x {
			out[i] = Text(item)
		}
		return Seq(out...)
	case []*TemplateResult:
		out := make([]Value, len(x))
		for i, item := range x {
			out[i] = Nested(item)
		}
		return Seq(out...)
	case int:
		return number(float64(x), v)
	case int8:
		return number(float64(x), v)
	case int16:
		return number(float64(x), v)
	case int32:
		return number(float64(x), v)
	case int64:
		return number(float64(x), v)
	case uint:
		return number(float64(x), v)
	case uint8:
		return number(float64(x), v)
	case uint16:
		return number(float64(x), v)
	case uint32:
		return number(float64(x), v)
	case uint64:
		return number(float64(x), v)
	case float32:
		return number(float64(x), v)
	case float64:
		return number(x, v)
	default:
		return Value{kind: KindOther, raw: v}
	}
}

func number(f float64, raw any) Value {
	return Value{kind: KindNumber, num: f, raw: raw}
}

// Kind reports the variant tag.
func (v Value) Kind() Kind {
	return v.kind
}

// Interface returns the Go value the slot was built from.
func (v Value) Interface() any {
	return v.raw
}

// truthy mirrors the slot check applied before a value is resolved: absent
// values, empty strings, false, zero and NaN are skipped.
func (v Value) truthy() bool {
	switch v.kind {
	case KindAbsent:
		return false
	case KindText:
		return v.text != ""
	case KindNumber:
		return v.num != 0 && !math.IsNaN(v.num)
	case KindBool:
		return v.flag
	default:
		return true
	}
}
