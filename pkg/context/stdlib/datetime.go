package stdlib

import (
	"time"

	"github.com/kristofer/weave/pkg/context"
	"github.com/kristofer/weave/pkg/value"
)

func registerDateTime(b *context.Builder) {
	b.Register("std::time::now", dateNow)
	b.Register("std::time::format", dateFormat)
	b.Register("std::time::parse", dateParse)
	b.Register("std::time::year", timePart(func(t time.Time) int64 { return int64(t.Year()) }))
	b.Register("std::time::month", timePart(func(t time.Time) int64 { return int64(t.Month()) }))
	b.Register("std::time::day", timePart(func(t time.Time) int64 { return int64(t.Day()) }))
	b.Register("std::time::hour", timePart(func(t time.Time) int64 { return int64(t.Hour()) }))
	b.Register("std::time::minute", timePart(func(t time.Time) int64 { return int64(t.Minute()) }))
	b.Register("std::time::second", timePart(func(t time.Time) int64 { return int64(t.Second()) }))
}

func dateNow(s context.Stack, argc int) error {
	if _, err := popArgs(s, argc); err != nil {
		return err
	}
	s.Push(value.Integer(time.Now().Unix()))
	return nil
}

func layoutFor(format string) string {
	switch format {
	case "iso8601", "ISO8601", "rfc3339", "RFC3339":
		return time.RFC3339
	case "date":
		return "2006-01-02"
	case "time":
		return "15:04:05"
	case "datetime":
		return "2006-01-02 15:04:05"
	default:
		return format
	}
}

func dateFormat(s context.Stack, argc int) error {
	args, err := popArgs(s, argc)
	if err != nil {
		return err
	}
	t := time.Unix(argInt(args[0]), 0)
	return resultOkString(s, t.Format(layoutFor(argString(args[1]))))
}

func dateParse(s context.Stack, argc int) error {
	args, err := popArgs(s, argc)
	if err != nil {
		return err
	}
	t, err := time.Parse(layoutFor(argString(args[1])), argString(args[0]))
	if err != nil {
		return resultErr(s, err)
	}
	s.Push(value.NewResult(value.Result{Ok: true, Value: value.Integer(t.Unix())}))
	return nil
}

func timePart(extract func(time.Time) int64) context.Handler {
	return func(s context.Stack, argc int) error {
		args, err := popArgs(s, argc)
		if err != nil {
			return err
		}
		s.Push(value.Integer(extract(time.Unix(argInt(args[0]), 0))))
		return nil
	}
}
