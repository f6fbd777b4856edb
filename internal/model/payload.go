package model

import (
	"errors"
	"io"
)

// defaultChunkSize is the read size used when relaying a stream.
const defaultChunkSize = 32 * 1024

// Payload is an upstream response body. Every payload can be read fully.
type Payload interface {
	io.Closer
	ReadAll() ([]byte, error)
}

// ChunkReader is implemented by payloads that can be relayed incrementally.
// NextChunk returns io.EOF once the body is exhausted.
type ChunkReader interface {
	Payload
	NextChunk() ([]byte, error)
}

// NewStreamPayload wraps rc so that it can be relayed chunk by chunk.
func NewStreamPayload(rc io.ReadCloser) ChunkReader {
	return &streamPayload{rc: rc, buf: make([]byte, defaultChunkSize)}
}

// NewBufferedPayload reads rc fully and closes it. The result is not a ChunkReader.
func NewBufferedPayload(rc io.ReadCloser) (Payload, error) {
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	return BytesPayload(data), nil
}

type streamPayload struct {
	rc  io.ReadCloser
	buf []byte
}

func (p *streamPayload) NextChunk() ([]byte, error) {
	for {
		n, err := p.rc.Read(p.buf)
		if n > 0 {
			// The returned slice is only valid until the next call.
			if errors.Is(err, io.EOF) {
				err = nil
			}
			return p.buf[:n], err
		}
		if err != nil {
			return nil, err
		}
	}
}

func (p *streamPayload) ReadAll() ([]byte, error) {
	return io.ReadAll(p.rc)
}

func (p *streamPayload) Close() error {
	return p.rc.Close()
}

// BytesPayload is a fully buffered payload.
type BytesPayload []byte

func (b BytesPayload) ReadAll() ([]byte, error) { return b, nil }

func (b BytesPayload) Close() error { return nil }
