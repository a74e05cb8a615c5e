package stdlib

import (
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/kristofer/weave/pkg/context"
	"github.com/kristofer/weave/pkg/value"
)

func registerHTTP(b *context.Builder) {
	b.Register("std::http::get", httpGet)
	b.Register("std::http::post", httpPost)
}

func httpGet(s context.Stack, argc int) error {
	args, err := popArgs(s, argc)
	if err != nil {
		return err
	}
	url := argString(args[0])

	log.Debug().Str("url", url).Msg("std::http::get")
	resp, err := http.Get(url)
	if err != nil {
		s.Push(value.NewResult(value.Result{Ok: false, Value: value.NewString(err.Error())}))
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		s.Push(value.NewResult(value.Result{Ok: false, Value: value.NewString(err.Error())}))
		return nil
	}
	s.Push(value.NewResult(value.Result{Ok: true, Value: value.NewString(string(body))}))
	return nil
}

func httpPost(s context.Stack, argc int) error {
	args, err := popArgs(s, argc)
	if err != nil {
		return err
	}
	url := argString(args[0])
	body := argString(args[1])

	log.Debug().Str("url", url).Msg("std::http::post")
	resp, err := http.Post(url, "text/plain", strings.NewReader(body))
	if err != nil {
		s.Push(value.NewResult(value.Result{Ok: false, Value: value.NewString(err.Error())}))
		return nil
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		s.Push(value.NewResult(value.Result{Ok: false, Value: value.NewString(err.Error())}))
		return nil
	}
	s.Push(value.NewResult(value.Result{Ok: true, Value: value.NewString(string(respBody))}))
	return nil
}
