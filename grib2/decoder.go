package grib2

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"gribdecode.com/config"
)

// Result is the outcome of one candidate message found in a stream.
type Result struct {
	Index    int   // position of the candidate in the stream
	Offset   int64 // byte offset of the candidate
	Messages []*Message
	Err      error
}

// DecodeAll scans buf and decodes every message on at most workers
// goroutines. Results come back in stream order; a message that fails to
// decode carries its error in Result.Err and does not stop the others.
// The returned error is non-nil only when ctx is cancelled.
func DecodeAll(ctx context.Context, buf []byte, workers int, opts ...Option) ([]Result, error) {
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var results []*Result
	sc := NewScanner(buf)
	for {
		if err := gctx.Err(); err != nil {
			break
		}
		span, err := sc.Next()
		if err == io.EOF {
			break
		}
		res := &Result{Index: len(results), Offset: span.Offset}
		results = append(results, res)
		log := config.Logger.WithFields(logrus.Fields{"index": res.Index, "offset": span.Offset})
		if err != nil {
			log.WithError(err).Debug("candidate skipped")
			res.Err = err
			continue
		}
		log.WithField("length", len(span.Data)).Debug("candidate found")

		msgOpts := make([]Option, 0, len(opts)+1)
		msgOpts = append(msgOpts, opts...)
		msgOpts = append(msgOpts, WithOffset(span.Offset))
		data := span.Data
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res.Messages, res.Err = DecodeFields(data, msgOpts...)
			if res.Err != nil {
				log.WithError(res.Err).Debug("message failed")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]Result, len(results))
	for i, r := range results {
		out[i] = *r
	}
	return out, nil
}
