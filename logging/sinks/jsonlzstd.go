package sinks

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"giantgrab/server/logging"
)

// JSONLZstdSink appends one zstd-compressed JSON line per event. Frames
// are flushed on every write so a crash loses at most the current event.
type JSONLZstdSink struct {
	mu   sync.Mutex
	file *os.File
	enc  *zstd.Encoder
	buf  *bufio.Writer
}

func NewJSONLZstdSink(cfg logging.JSONLConfig) (*JSONLZstdSink, error) {
	path := cfg.FilePath
	if path == "" {
		path = "events.jsonl.zst"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	level := zstd.EncoderLevel(cfg.ZstdLevel)
	if level < zstd.SpeedFastest || level > zstd.SpeedBestCompression {
		level = zstd.SpeedFastest
	}
	enc, err := zstd.NewWriter(file, zstd.WithEncoderLevel(level))
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	return &JSONLZstdSink{
		file: file,
		enc:  enc,
		buf:  bufio.NewWriterSize(enc, 128*1024),
	}, nil
}

func (s *JSONLZstdSink) Write(event logging.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buf == nil {
		return os.ErrClosed
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := s.buf.Write(data); err != nil {
		return err
	}
	if err := s.buf.WriteByte('\n'); err != nil {
		return err
	}
	return s.buf.Flush()
}

func (s *JSONLZstdSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	if s.buf != nil {
		if err := s.buf.Flush(); err != nil {
			firstErr = err
		}
		s.buf = nil
	}
	if s.enc != nil {
		if err := s.enc.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.enc = nil
	}
	if s.file != nil {
		if err := s.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.file = nil
	}
	return firstErr
}
