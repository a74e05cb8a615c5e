package stdlib

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/kristofer/weave/pkg/context"
)

func registerCompress(b *context.Builder) {
	b.Register("std::compress::zip", zipCompress)
	b.Register("std::compress::unzip", zipDecompress)
	b.Register("std::compress::gzip", gzipCompress)
	b.Register("std::compress::gunzip", gzipDecompress)
}

func zipCompress(s context.Stack, argc int) error {
	args, err := popArgs(s, argc)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("data")
	if err != nil {
		return resultErr(s, err)
	}
	if _, err := f.Write([]byte(argString(args[0]))); err != nil {
		return resultErr(s, err)
	}
	if err := w.Close(); err != nil {
		return resultErr(s, err)
	}
	return resultOkString(s, base64.StdEncoding.EncodeToString(buf.Bytes()))
}

func zipDecompress(s context.Stack, argc int) error {
	args, err := popArgs(s, argc)
	if err != nil {
		return err
	}
	decoded, err := base64.StdEncoding.DecodeString(argString(args[0]))
	if err != nil {
		return resultErr(s, err)
	}
	r, err := zip.NewReader(bytes.NewReader(decoded), int64(len(decoded)))
	if err != nil {
		return resultErr(s, err)
	}
	if len(r.File) == 0 {
		return resultErr(s, fmt.Errorf("zip archive is empty"))
	}
	f, err := r.File[0].Open()
	if err != nil {
		return resultErr(s, err)
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return resultErr(s, err)
	}
	return resultOkString(s, string(content))
}

func gzipCompress(s context.Stack, argc int) error {
	args, err := popArgs(s, argc)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write([]byte(argString(args[0]))); err != nil {
		return resultErr(s, err)
	}
	if err := w.Close(); err != nil {
		return resultErr(s, err)
	}
	return resultOkString(s, base64.StdEncoding.EncodeToString(buf.Bytes()))
}

func gzipDecompress(s context.Stack, argc int) error {
	args, err := popArgs(s, argc)
	if err != nil {
		return err
	}
	decoded, err := base64.StdEncoding.DecodeString(argString(args[0]))
	if err != nil {
		return resultErr(s, err)
	}
	r, err := gzip.NewReader(bytes.NewReader(decoded))
	if err != nil {
		return resultErr(s, err)
	}
	defer r.Close()
	content, err := io.ReadAll(r)
	if err != nil {
		return resultErr(s, err)
	}
	return resultOkString(s, string(content))
}
