// Package value implements the tagged-union runtime value type described
// in spec.md §3.1: a small set of primitives plus a set of compound
// variants that are always referenced through a shared access.Cell so
// that clones of a Value observe the same mutations and the same
// dynamic borrow state.
//
// Four compound variants — Future, Generator, Stream, Function — are
// intentionally opaque here: their concrete representation involves a
// child VM, which would import this package to manipulate Values,
// so this package cannot import it back. Those four variants store
// their cell as `any` and are read back with the generic FutureData /
// GeneratorData / StreamData / FunctionData helpers, parameterized on
// the concrete type the vm package defines.
package value

import (
	"fmt"
	"math"

	"github.com/kristofer/weave/pkg/access"
)

// Value is the uniform representation of every runtime value. Primitives
// are stored inline; compound values hold a pointer to a shared cell (or,
// for the four VM-coupled kinds, an opaque handle to one).
type Value struct {
	typ  ValueType
	data any
}

// Type reports the Value's ValueType, used for equality and dispatch.
func (v Value) Type() ValueType { return v.typ }

// IsUnit reports whether v is the Unit value.
func (v Value) IsUnit() bool { return v.typ == TUnit }

// --- Primitive constructors -------------------------------------------------

// Unit returns the single Unit value.
func Unit() Value { return Value{typ: TUnit} }

// Bool constructs a boolean Value.
func Bool(b bool) Value { return Value{typ: TBool, data: b} }

// Byte constructs an unsigned 8-bit Value.
func Byte(b byte) Value { return Value{typ: TByte, data: b} }

// Char constructs a Unicode scalar value.
func Char(r rune) Value { return Value{typ: TChar, data: r} }

// Integer constructs a signed 64-bit Value.
func Integer(i int64) Value { return Value{typ: TInteger, data: i} }

// Float constructs a binary64 Value.
func Float(f float64) Value { return Value{typ: TFloat, data: f} }

// TypeValue constructs a Value naming a type or item by Hash, used by
// the `Is`/`IsNot` instructions and by Function dispatch on constructors.
func TypeValue(h Hash) Value { return Value{typ: TType, data: h} }

// StaticString constructs an immutable, unshared string Value backed
// directly by a Go string (interned in the Unit's string pool).
func StaticString(s string) Value { return Value{typ: TStaticString, data: s} }

// NewString constructs a mutable String Value backed by a fresh shared
// cell.
func NewString(s string) Value {
	return Value{typ: TString, data: access.New(s)}
}

// AsBool type-asserts v as Bool, panicking if v is not a Bool. Callers
// at the VM layer check Type() first; this is the unchecked accessor for
// once that check has already happened.
func (v Value) AsBool() bool { return v.data.(bool) }

// AsByte type-asserts v as Byte.
func (v Value) AsByte() byte { return v.data.(byte) }

// AsChar type-asserts v as Char.
func (v Value) AsChar() rune { return v.data.(rune) }

// AsInteger type-asserts v as Integer.
func (v Value) AsInteger() int64 { return v.data.(int64) }

// AsFloat type-asserts v as Float.
func (v Value) AsFloat() float64 { return v.data.(float64) }

// AsType type-asserts v as Type.
func (v Value) AsType() Hash { return v.data.(Hash) }

// AsStaticString type-asserts v as StaticString.
func (v Value) AsStaticString() string { return v.data.(string) }

// StringCell type-asserts v as a mutable String and returns its cell.
func (v Value) StringCell() *access.Cell[string] { return v.data.(*access.Cell[string]) }

// --- Bytes -------------------------------------------------------------

// NewBytes constructs a Bytes Value backed by a fresh shared cell.
func NewBytes(b []byte) Value { return Value{typ: TBytes, data: access.New(b)} }

// BytesCell type-asserts v as Bytes and returns its cell.
func (v Value) BytesCell() *access.Cell[[]byte] { return v.data.(*access.Cell[[]byte]) }

// --- Vec / Tuple ---------------------------------------------------------

// NewVec constructs a Vec Value backed by a fresh shared cell.
func NewVec(elems []Value) Value { return Value{typ: TVec, data: access.New(elems)} }

// VecCell type-asserts v as Vec and returns its cell.
func (v Value) VecCell() *access.Cell[[]Value] { return v.data.(*access.Cell[[]Value]) }

// NewTuple constructs a Tuple Value backed by a fresh shared cell.
func NewTuple(elems []Value) Value { return Value{typ: TTuple, data: access.New(elems)} }

// TupleCell type-asserts v as Tuple and returns its cell.
func (v Value) TupleCell() *access.Cell[[]Value] { return v.data.(*access.Cell[[]Value]) }

// --- Object --------------------------------------------------------------

// Object is an insertion-ordered, string-keyed map.
type Object struct {
	keys []string
	vals map[string]Value
}

// NewObject constructs an empty Object.
func NewObject() *Object {
	return &Object{vals: make(map[string]Value)}
}

// Get returns the value stored under key, if any.
func (o *Object) Get(key string) (Value, bool) {
	v, ok := o.vals[key]
	return v, ok
}

// Set stores value under key, appending key to the insertion order if
// it is new.
func (o *Object) Set(key string, v Value) {
	if _, exists := o.vals[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
}

// Keys returns the object's keys in insertion order.
func (o *Object) Keys() []string { return o.keys }

// Len returns the number of fields.
func (o *Object) Len() int { return len(o.keys) }

// HasKeys reports whether o's key set is a superset of required
// (or exactly equal to it, when exact is true). Used by MatchObject
// (spec.md §4.5.1).
func (o *Object) HasKeys(required []string, exact bool) bool {
	if exact && len(required) != len(o.keys) {
		return false
	}
	for _, k := range required {
		if _, ok := o.vals[k]; !ok {
			return false
		}
	}
	return true
}

// NewObjectValue constructs an Object Value backed by a fresh shared cell.
func NewObjectValue(o *Object) Value { return Value{typ: TObject, data: access.New(o)} }

// ObjectCell type-asserts v as Object and returns its cell.
func (v Value) ObjectCell() *access.Cell[*Object] { return v.data.(*access.Cell[*Object]) }

// --- Result / Option -------------------------------------------------------

// Result is the payload of a Result Value: either Ok(value) or
// Err(value).
type Result struct {
	Ok    bool
	Value Value
}

// NewResult constructs a Result Value backed by a fresh shared cell.
func NewResult(r Result) Value { return Value{typ: TResult, data: access.New(r)} }

// ResultCell type-asserts v as Result and returns its cell.
func (v Value) ResultCell() *access.Cell[Result] { return v.data.(*access.Cell[Result]) }

// Option is the payload of an Option Value: either Some(value) or None.
type Option struct {
	Some  bool
	Value Value
}

// NewOption constructs an Option Value backed by a fresh shared cell.
func NewOption(o Option) Value { return Value{typ: TOption, data: access.New(o)} }

// OptionCell type-asserts v as Option and returns its cell.
func (v Value) OptionCell() *access.Cell[Option] { return v.data.(*access.Cell[Option]) }

// --- Typed / variant tuples and objects ------------------------------------

// TypedTuple is a named tuple constructed via a Unit's Tuple function
// table entry.
type TypedTuple struct {
	Hash   Hash
	Fields []Value
}

func NewTypedTuple(t TypedTuple) Value { return Value{typ: TTypedTuple, data: access.New(t)} }

func (v Value) TypedTupleCell() *access.Cell[TypedTuple] { return v.data.(*access.Cell[TypedTuple]) }

// TupleVariant is one tuple-shaped variant of a tagged enum.
type TupleVariant struct {
	EnumHash Hash
	Hash     Hash
	Fields   []Value
}

func NewTupleVariant(t TupleVariant) Value { return Value{typ: TTupleVariant, data: access.New(t)} }

func (v Value) TupleVariantCell() *access.Cell[TupleVariant] {
	return v.data.(*access.Cell[TupleVariant])
}

// TypedObject is a named object-shaped record.
type TypedObject struct {
	Hash   Hash
	Fields *Object
}

func NewTypedObject(t TypedObject) Value { return Value{typ: TTypedObject, data: access.New(t)} }

func (v Value) TypedObjectCell() *access.Cell[TypedObject] {
	return v.data.(*access.Cell[TypedObject])
}

// VariantObject is one object-shaped variant of a tagged enum.
type VariantObject struct {
	EnumHash Hash
	Hash     Hash
	Fields   *Object
}

func NewVariantObject(v VariantObject) Value { return Value{typ: TVariantObject, data: access.New(v)} }

func (v Value) VariantObjectCell() *access.Cell[VariantObject] {
	return v.data.(*access.Cell[VariantObject])
}

// --- Generator state -------------------------------------------------------

// GeneratorState is the value a generator/stream produces when resumed:
// either a yielded intermediate value, or the final completion value.
type GeneratorState struct {
	Complete bool
	Value    Value
}

func NewGeneratorState(g GeneratorState) Value {
	return Value{typ: TGeneratorState, data: access.New(g)}
}

func (v Value) GeneratorStateCell() *access.Cell[GeneratorState] {
	return v.data.(*access.Cell[GeneratorState])
}

// --- VM-coupled compound kinds (Future, Generator, Stream, Function) ------

// NewFuture wraps an opaque cell (created by the vm package) as a
// Future Value.
func NewFuture(cell any) Value { return Value{typ: TFuture, data: cell} }

// FutureData recovers the concrete cell stored in a Future Value. T
// must match the type the vm package used when constructing it.
func FutureData[T any](v Value) (*access.Cell[T], bool) {
	c, ok := v.data.(*access.Cell[T])
	return c, ok
}

// NewGenerator wraps an opaque cell as a Generator Value.
func NewGenerator(cell any) Value { return Value{typ: TGenerator, data: cell} }

func GeneratorData[T any](v Value) (*access.Cell[T], bool) {
	c, ok := v.data.(*access.Cell[T])
	return c, ok
}

// NewStream wraps an opaque cell as a Stream Value.
func NewStream(cell any) Value { return Value{typ: TStream, data: cell} }

func StreamData[T any](v Value) (*access.Cell[T], bool) {
	c, ok := v.data.(*access.Cell[T])
	return c, ok
}

// NewFunction wraps an opaque cell as a Function Value.
func NewFunction(cell any) Value { return Value{typ: TFunction, data: cell} }

func FunctionData[T any](v Value) (*access.Cell[T], bool) {
	c, ok := v.data.(*access.Cell[T])
	return c, ok
}

// --- TypeInfo --------------------------------------------------------------

// TypeInfo renders a human-displayable description of v's type, for use
// in error messages and disassembly. Unlike Type(), which returns a bare
// ValueType for dispatch, TypeInfo includes the Hash for named types.
func (v Value) TypeInfo() string {
	switch v.typ {
	case TTypedTuple:
		return fmt.Sprintf("TypedTuple(%s)", v.data.(*access.Cell[TypedTuple]).RawGet().Hash)
	case TTupleVariant:
		tv := v.data.(*access.Cell[TupleVariant]).RawGet()
		return fmt.Sprintf("TupleVariant(%s::%s)", tv.EnumHash, tv.Hash)
	case TTypedObject:
		return fmt.Sprintf("TypedObject(%s)", v.data.(*access.Cell[TypedObject]).RawGet().Hash)
	case TVariantObject:
		vo := v.data.(*access.Cell[VariantObject]).RawGet()
		return fmt.Sprintf("VariantObject(%s::%s)", vo.EnumHash, vo.Hash)
	case TType:
		return fmt.Sprintf("Type(%s)", v.data.(Hash))
	default:
		return v.typ.String()
	}
}

// String implements fmt.Stringer for debug/REPL display purposes. It is
// not the STRING_DISPLAY protocol (that is a VM-level fallback over
// Context); this is a best-effort renderer for primitives and the
// shapes of compound values.
func (v Value) String() string {
	switch v.typ {
	case TUnit:
		return "()"
	case TBool:
		return fmt.Sprintf("%t", v.data.(bool))
	case TByte:
		return fmt.Sprintf("%d", v.data.(byte))
	case TChar:
		return fmt.Sprintf("%q", v.data.(rune))
	case TInteger:
		return fmt.Sprintf("%d", v.data.(int64))
	case TFloat:
		f := v.data.(float64)
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return fmt.Sprintf("%f", f)
		}
		return fmt.Sprintf("%v", f)
	case TType:
		return v.data.(Hash).String()
	case TStaticString:
		return v.data.(string)
	case TString:
		return *v.StringCell().RawGet()
	case TBytes:
		return fmt.Sprintf("%v", *v.BytesCell().RawGet())
	case TVec:
		return fmt.Sprintf("%v", *v.VecCell().RawGet())
	case TTuple:
		return fmt.Sprintf("%v", *v.TupleCell().RawGet())
	default:
		return v.TypeInfo()
	}
}
