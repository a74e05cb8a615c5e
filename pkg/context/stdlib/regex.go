package stdlib

import (
	"regexp"

	"github.com/kristofer/weave/pkg/context"
	"github.com/kristofer/weave/pkg/value"
)

func registerRegex(b *context.Builder) {
	b.Register("std::regex::is_match", regexMatch)
	b.Register("std::regex::find_all", regexFindAll)
	b.Register("std::regex::replace", regexReplace)
}

func regexMatch(s context.Stack, argc int) error {
	args, err := popArgs(s, argc)
	if err != nil {
		return err
	}
	matched, err := regexp.MatchString(argString(args[0]), argString(args[1]))
	if err != nil {
		return resultErr(s, err)
	}
	s.Push(value.NewResult(value.Result{Ok: true, Value: value.Bool(matched)}))
	return nil
}

func regexFindAll(s context.Stack, argc int) error {
	args, err := popArgs(s, argc)
	if err != nil {
		return err
	}
	re, err := regexp.Compile(argString(args[0]))
	if err != nil {
		return resultErr(s, err)
	}
	matches := re.FindAllString(argString(args[1]), -1)
	elems := make([]value.Value, len(matches))
	for i, m := range matches {
		elems[i] = value.NewString(m)
	}
	s.Push(value.NewResult(value.Result{Ok: true, Value: value.NewVec(elems)}))
	return nil
}

func regexReplace(s context.Stack, argc int) error {
	args, err := popArgs(s, argc)
	if err != nil {
		return err
	}
	re, err := regexp.Compile(argString(args[0]))
	if err != nil {
		return resultErr(s, err)
	}
	return resultOkString(s, re.ReplaceAllString(argString(args[1]), argString(args[2])))
}
