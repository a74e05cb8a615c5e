package stdlib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristofer/weave/pkg/context"
	"github.com/kristofer/weave/pkg/value"
)

type fakeStack struct{ vals []value.Value }

func (f *fakeStack) Push(v value.Value) { f.vals = append(f.vals, v) }
func (f *fakeStack) Pop() (value.Value, error) {
	v := f.vals[len(f.vals)-1]
	f.vals = f.vals[:len(f.vals)-1]
	return v, nil
}
func (f *fakeStack) Len() int { return len(f.vals) }

func callHandler(t *testing.T, b *context.Builder, path string, args ...value.Value) value.Value {
	t.Helper()
	ctx := b.Build()
	fn, ok := ctx.Lookup(value.HashString(path))
	require.True(t, ok, "handler %s not registered", path)
	s := &fakeStack{vals: args}
	require.NoError(t, fn(s, len(args)))
	require.Equal(t, 1, len(s.vals))
	return s.vals[0]
}

func TestSHA256Hash(t *testing.T) {
	b := context.New()
	registerCrypto(b)
	result := callHandler(t, b, "std::crypto::sha256", value.NewString("hello"))
	assert.Equal(t, value.TString, result.Type())
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", *result.StringCell().RawGet())
}

func TestBase64RoundTrip(t *testing.T) {
	b := context.New()
	registerCrypto(b)
	encoded := callHandler(t, b, "std::crypto::base64_encode", value.NewString("weave"))
	decoded := callHandler(t, b, "std::crypto::base64_decode", encoded)
	require.Equal(t, value.TResult, decoded.Type())
	r := *decoded.ResultCell().RawGet()
	assert.True(t, r.Ok)
	assert.Equal(t, "weave", *r.Value.StringCell().RawGet())
}

func TestJSONRoundTrip(t *testing.T) {
	b := context.New()
	registerJSON(b)
	generated := callHandler(t, b, "std::json::generate", value.Integer(7))
	require.Equal(t, value.TResult, generated.Type())
	genResult := *generated.ResultCell().RawGet()
	assert.True(t, genResult.Ok)

	parsed := callHandler(t, b, "std::json::parse", genResult.Value)
	parsedResult := *parsed.ResultCell().RawGet()
	assert.True(t, parsedResult.Ok)
	assert.Equal(t, int64(7), parsedResult.Value.AsInteger())
}

func TestRegexMatchAndReplace(t *testing.T) {
	b := context.New()
	registerRegex(b)
	matched := callHandler(t, b, "std::regex::is_match", value.NewString("^w"), value.NewString("weave"))
	r := *matched.ResultCell().RawGet()
	assert.True(t, r.Ok)
	assert.True(t, r.Value.AsBool())

	replaced := callHandler(t, b, "std::regex::replace", value.NewString("a"), value.NewString("banana"), value.NewString("o"))
	rr := *replaced.ResultCell().RawGet()
	assert.True(t, rr.Ok)
	assert.Equal(t, "bonono", *rr.Value.StringCell().RawGet())
}

func TestFutureJoinRequiresFutures(t *testing.T) {
	b := context.New()
	registerFuture(b, func(v value.Value) (value.Value, error) { return v, nil })
	result := callHandler(t, b, "std::future::join", value.NewTuple([]value.Value{value.Integer(1)}))
	r := *result.ResultCell().RawGet()
	assert.False(t, r.Ok)
}
