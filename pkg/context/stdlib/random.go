package stdlib

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"math/big"

	"github.com/kristofer/weave/pkg/context"
	"github.com/kristofer/weave/pkg/value"
)

func registerRandom(b *context.Builder) {
	b.Register("std::random::int", randomInt)
	b.Register("std::random::float", randomFloat)
	b.Register("std::random::bytes", randomBytes)
}

func randomInt(s context.Stack, argc int) error {
	args, err := popArgs(s, argc)
	if err != nil {
		return err
	}
	min, max := argInt(args[0]), argInt(args[1])
	if min > max {
		return resultErr(s, fmt.Errorf("min must be <= max"))
	}
	n, err := rand.Int(rand.Reader, big.NewInt(max-min+1))
	if err != nil {
		return resultErr(s, err)
	}
	s.Push(value.NewResult(value.Result{Ok: true, Value: value.Integer(n.Int64() + min)}))
	return nil
}

func randomFloat(s context.Stack, argc int) error {
	if _, err := popArgs(s, argc); err != nil {
		return err
	}
	buf := make([]byte, 8)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return resultErr(s, err)
	}
	n := uint64(buf[0])<<56 | uint64(buf[1])<<48 | uint64(buf[2])<<40 | uint64(buf[3])<<32 |
		uint64(buf[4])<<24 | uint64(buf[5])<<16 | uint64(buf[6])<<8 | uint64(buf[7])
	f := float64(n>>11) / float64(uint64(1)<<53)
	s.Push(value.NewResult(value.Result{Ok: true, Value: value.Float(f)}))
	return nil
}

func randomBytes(s context.Stack, argc int) error {
	args, err := popArgs(s, argc)
	if err != nil {
		return err
	}
	length := argInt(args[0])
	if length < 0 {
		return resultErr(s, fmt.Errorf("length must be >= 0"))
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return resultErr(s, err)
	}
	return resultOkString(s, base64.StdEncoding.EncodeToString(buf))
}
