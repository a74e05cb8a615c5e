package stdlib

import (
	"os"

	"github.com/kristofer/weave/pkg/context"
	"github.com/kristofer/weave/pkg/value"
)

func registerFileIO(b *context.Builder) {
	b.Register("std::fs::read", fileRead)
	b.Register("std::fs::write", fileWrite)
	b.Register("std::fs::exists", fileExists)
	b.Register("std::fs::delete", fileDelete)
}

func fileRead(s context.Stack, argc int) error {
	args, err := popArgs(s, argc)
	if err != nil {
		return err
	}
	content, err := os.ReadFile(argString(args[0]))
	if err != nil {
		return resultErr(s, err)
	}
	return resultOkString(s, string(content))
}

func fileWrite(s context.Stack, argc int) error {
	args, err := popArgs(s, argc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(argString(args[0]), []byte(argString(args[1])), 0o644); err != nil {
		return resultErr(s, err)
	}
	s.Push(value.NewResult(value.Result{Ok: true, Value: value.Unit()}))
	return nil
}

func fileExists(s context.Stack, argc int) error {
	args, err := popArgs(s, argc)
	if err != nil {
		return err
	}
	_, statErr := os.Stat(argString(args[0]))
	s.Push(value.Bool(statErr == nil))
	return nil
}

func fileDelete(s context.Stack, argc int) error {
	args, err := popArgs(s, argc)
	if err != nil {
		return err
	}
	if err := os.Remove(argString(args[0])); err != nil {
		return resultErr(s, err)
	}
	s.Push(value.NewResult(value.Result{Ok: true, Value: value.Unit()}))
	return nil
}
