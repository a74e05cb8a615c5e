package stdlib

import (
	"encoding/json"

	"github.com/kristofer/weave/pkg/context"
	"github.com/kristofer/weave/pkg/value"
)

func registerJSON(b *context.Builder) {
	b.Register("std::json::parse", jsonParse)
	b.Register("std::json::generate", jsonGenerate)
}

func jsonParse(s context.Stack, argc int) error {
	args, err := popArgs(s, argc)
	if err != nil {
		return err
	}
	var decoded any
	if err := json.Unmarshal([]byte(argString(args[0])), &decoded); err != nil {
		return resultErr(s, err)
	}
	s.Push(value.NewResult(value.Result{Ok: true, Value: fromJSON(decoded)}))
	return nil
}

func jsonGenerate(s context.Stack, argc int) error {
	args, err := popArgs(s, argc)
	if err != nil {
		return err
	}
	data, err := json.Marshal(toJSON(args[0]))
	if err != nil {
		return resultErr(s, err)
	}
	return resultOkString(s, string(data))
}

// fromJSON converts a decoded JSON value (bool/float64/string/nil/
// []any/map[string]any, per encoding/json's default unmarshal shapes)
// into the runtime Value tree, matching the teacher's convertJSONValue
// (whole-number float64 collapses to Integer; arrays become Vec;
// objects become Object).
func fromJSON(v any) value.Value {
	switch x := v.(type) {
	case nil:
		return value.Unit()
	case bool:
		return value.Bool(x)
	case float64:
		if x == float64(int64(x)) {
			return value.Integer(int64(x))
		}
		return value.Float(x)
	case string:
		return value.NewString(x)
	case []any:
		elems := make([]value.Value, len(x))
		for i, e := range x {
			elems[i] = fromJSON(e)
		}
		return value.NewVec(elems)
	case map[string]any:
		obj := value.NewObject()
		for k, e := range x {
			obj.Set(k, fromJSON(e))
		}
		return value.NewObjectValue(obj)
	default:
		return value.Unit()
	}
}

// toJSON is fromJSON's inverse, used by std::json::generate.
func toJSON(v value.Value) any {
	switch v.Type() {
	case value.TUnit:
		return nil
	case value.TBool:
		return v.AsBool()
	case value.TInteger:
		return v.AsInteger()
	case value.TFloat:
		return v.AsFloat()
	case value.TStaticString:
		return v.AsStaticString()
	case value.TString:
		g, err := v.StringCell().BorrowShared()
		if err != nil {
			return nil
		}
		defer g.Release()
		return *g.Value()
	case value.TVec, value.TTuple:
		var cell = v.VecCell
		if v.Type() == value.TTuple {
			cell = v.TupleCell
		}
		g, err := cell().BorrowShared()
		if err != nil {
			return nil
		}
		defer g.Release()
		elems := *g.Value()
		out := make([]any, len(elems))
		for i, e := range elems {
			out[i] = toJSON(e)
		}
		return out
	case value.TObject:
		g, err := v.ObjectCell().BorrowShared()
		if err != nil {
			return nil
		}
		defer g.Release()
		o := *g.Value()
		out := make(map[string]any, o.Len())
		for _, k := range o.Keys() {
			fv, _ := o.Get(k)
			out[k] = toJSON(fv)
		}
		return out
	default:
		return nil
	}
}
