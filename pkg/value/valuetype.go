package value

// ValueType categorizes a Value for equality, pattern matching, and
// instance-function dispatch. It is the "type id" half of spec.md §3.1;
// the human-readable half is TypeInfo (see value.go).
type ValueType int

const (
	TUnit ValueType = iota
	TBool
	TByte
	TChar
	TInteger
	TFloat
	TType
	TStaticString
	TString
	TBytes
	TVec
	TTuple
	TObject
	TResult
	TOption
	TTypedTuple
	TTupleVariant
	TTypedObject
	TVariantObject
	TGeneratorState
	TFuture
	TGenerator
	TStream
	TFunction
)

var valueTypeNames = [...]string{
	TUnit:           "Unit",
	TBool:           "Bool",
	TByte:           "Byte",
	TChar:           "Char",
	TInteger:        "Integer",
	TFloat:          "Float",
	TType:           "Type",
	TStaticString:   "StaticString",
	TString:         "String",
	TBytes:          "Bytes",
	TVec:            "Vec",
	TTuple:          "Tuple",
	TObject:         "Object",
	TResult:         "Result",
	TOption:         "Option",
	TTypedTuple:     "TypedTuple",
	TTupleVariant:   "TupleVariant",
	TTypedObject:    "TypedObject",
	TVariantObject:  "VariantObject",
	TGeneratorState: "GeneratorState",
	TFuture:         "Future",
	TGenerator:      "Generator",
	TStream:         "Stream",
	TFunction:       "Function",
}

// String implements fmt.Stringer, giving each ValueType the name used
// throughout error messages and disassembly.
func (t ValueType) String() string {
	if int(t) >= 0 && int(t) < len(valueTypeNames) && valueTypeNames[t] != "" {
		return valueTypeNames[t]
	}
	return "Unknown"
}
