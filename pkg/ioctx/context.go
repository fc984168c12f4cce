// Package ioctx carries output streams on a context so that command code
// never writes to os.Stdout directly. Streams default to io.Discard when the
// context carries none.
package ioctx

import (
	"context"
	"io"
)

type stdoutKey struct{}
type stderrKey struct{}

func StdoutToContext(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, stdoutKey{}, w)
}

func StdoutFromContext(ctx context.Context) io.Writer {
	if w := ctx.Value(stdoutKey{}); w != nil {
		return w.(io.Writer)
	}
	return io.Discard
}

func StderrToContext(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, stderrKey{}, w)
}

func StderrFromContext(ctx context.Context) io.Writer {
	if w := ctx.Value(stderrKey{}); w != nil {
		return w.(io.Writer)
	}
	return io.Discard
}
