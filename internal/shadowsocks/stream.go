package shadowsocks

import (
	"context"
	"errors"
	"io"

	"github.com/pichi-router/pichi-go/internal/adapter"
	"github.com/pichi-router/pichi-go/internal/buffer"
)

// cryptoReader is the decrypt side of one direction: it owns the
// transport's raw reads, the lazily-installed decryptor, and a cache of
// decrypted bytes the caller hasn't drained yet, needed when an AEAD frame
// decodes to more bytes than the caller's buffer can hold.
type cryptoReader struct {
	transport adapter.Stream
	dec       *decryptor
	pending   buffer.Cache
}

// readFull loops Recv until len(buf) bytes are read. A clean EOF with zero
// bytes read so far is a frame boundary and reported as io.EOF; an EOF
// after partial progress is a truncated frame and reported as BadProto.
func readFull(ctx context.Context, s adapter.Stream, buf []byte) error {
	read := 0
	for read < len(buf) {
		n, err := s.Recv(ctx, buf[read:])
		read += n
		if err != nil {
			if errors.Is(err, io.EOF) {
				if read == 0 {
					return io.EOF
				}
				return adapter.Wrap(adapter.BadProto, "short read mid-frame", err)
			}
			return err
		}
		if n == 0 {
			continue
		}
	}
	return nil
}

// ensureIV reads the peer's IV/salt exactly once and installs it into dec,
// returning the raw bytes so the caller (the session orchestrator, via
// adapter.Ingress.ReadIV) can consult the replay cache.
func (r *cryptoReader) ensureIV(ctx context.Context) ([]byte, error) {
	if r.dec.ivSet {
		return nil, nil
	}
	iv := make([]byte, r.dec.method.IVSize())
	if err := readFull(ctx, r.transport, iv); err != nil {
		return nil, adapter.Wrap(adapter.BadProto, "failed reading shadowsocks iv/salt", err)
	}
	if err := r.dec.SetIV(iv); err != nil {
		return nil, err
	}
	return iv, nil
}

// recv drains any pending decrypted bytes first, else reads and decrypts
// one more unit (a raw chunk for stream methods, one frame for AEAD).
func (r *cryptoReader) recv(ctx context.Context, buf []byte) (int, error) {
	if !r.pending.Empty() {
		return r.pending.Drain(buf), nil
	}
	if r.dec.method.IsAEAD() {
		return r.recvAEADFrame(ctx, buf)
	}
	return r.recvStreamChunk(ctx, buf)
}

func (r *cryptoReader) recvStreamChunk(ctx context.Context, buf []byte) (int, error) {
	raw := make([]byte, len(buf))
	n, err := r.transport.Recv(ctx, raw)
	if n > 0 {
		copy(buf, r.dec.DecryptStream(raw[:n]))
	}
	return n, err
}

func (r *cryptoReader) recvAEADFrame(ctx context.Context, buf []byte) (int, error) {
	tagSize := r.dec.method.TagSize()

	lenFrame := make([]byte, 2+tagSize)
	if err := readFull(ctx, r.transport, lenFrame); err != nil {
		return 0, err
	}
	plainLen, err := r.dec.DecryptLenFrame(lenFrame)
	if err != nil {
		return 0, err
	}

	payloadFrame := make([]byte, plainLen+tagSize)
	if err := readFull(ctx, r.transport, payloadFrame); err != nil {
		return 0, err
	}
	plain, err := r.dec.DecryptPayloadFrame(payloadFrame)
	if err != nil {
		return 0, err
	}

	n := copy(buf, plain)
	if n < len(plain) {
		r.pending.Fill(plain[n:])
	}
	return n, nil
}

// endpointReader adapts r to endpoint.Reader, reading decrypted bytes.
func (r *cryptoReader) endpointReader(ctx context.Context) func(p []byte) error {
	return func(p []byte) error {
		read := 0
		for read < len(p) {
			n, err := r.recv(ctx, p[read:])
			read += n
			if err != nil {
				return err
			}
		}
		return nil
	}
}

// cryptoWriter is the encrypt side of one direction: it owns the
// transport's raw writes and the lazily-created encryptor, emitting the
// IV/salt prefix exactly once on the first Send.
type cryptoWriter struct {
	transport adapter.Stream
	enc       *encryptor
}

func (w *cryptoWriter) send(ctx context.Context, buf []byte) error {
	var out []byte
	if !w.enc.sent {
		out = append(out, w.enc.iv...)
		w.enc.sent = true
	}

	if w.enc.method.IsAEAD() {
		for len(buf) > 0 {
			chunk := buf
			if len(chunk) > buffer.MaxAEADPayload {
				chunk = chunk[:buffer.MaxAEADPayload]
			}
			frame, err := w.enc.EncryptFrame(chunk)
			if err != nil {
				return err
			}
			out = append(out, frame...)
			buf = buf[len(chunk):]
		}
	} else {
		out = append(out, w.enc.EncryptStream(buf)...)
	}

	if err := w.transport.Send(ctx, out); err != nil {
		return adapter.Wrap(adapter.ConnFailure, "shadowsocks send failed", err)
	}
	return nil
}
