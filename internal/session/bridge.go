package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pichi-router/pichi-go/internal/adapter"
	"github.com/pichi-router/pichi-go/internal/buffer"
)

// bridge copies bytes in both directions between ingress and egress until
// one side can no longer be read or the other can no longer be written,
// then closes both.
func bridge(ctx context.Context, log *slog.Logger, a, b adapter.Stream) {
	var once sync.Once
	closeBoth := func() {
		once.Do(func() {
			a.Close()
			b.Close()
		})
	}

	var wg sync.WaitGroup
	wg.Add(2)
	safeGo(log, "bridge-a-to-b", func() {
		defer wg.Done()
		defer closeBoth()
		copyLoop(ctx, b, a)
	})
	safeGo(log, "bridge-b-to-a", func() {
		defer wg.Done()
		defer closeBoth()
		copyLoop(ctx, a, b)
	})
	wg.Wait()
}

// copyLoop reads up to buffer.MaxFrameSize bytes from src and writes them
// to dst until either side's gate closes or a read/write fails. EOF and
// adapter cancellation are the normal end of a bridge, not errors.
func copyLoop(ctx context.Context, dst, src adapter.Stream) {
	buf := make([]byte, buffer.MaxFrameSize)
	for src.Readable() && dst.Writable() {
		n, err := src.Recv(ctx, buf)
		if n > 0 {
			if werr := dst.Send(ctx, buf[:n]); werr != nil {
				return
			}
		}
		if err != nil {
			// EOF and cancellation land here too; all of them end the
			// bridge the same way.
			return
		}
	}
}
