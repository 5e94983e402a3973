package main

import (
	"io"
	"os"
	"path/filepath"
	"sync"
)

const (
	maxLogSizeBytes  = 6 * 1024 * 1024
	keepLogSizeBytes = 5 * 1024 * 1024
)

// logFileWriter appends to a file and keeps only its tail once it grows past
// maxLogSizeBytes.
type logFileWriter struct {
	path string
	file *os.File
	mu   sync.Mutex
	max  int64
	keep int64
}

func newLogFileWriter(path string) (*logFileWriter, *os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, err
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	writer := &logFileWriter{path: path, file: file, max: maxLogSizeBytes, keep: keepLogSizeBytes}
	if err := writer.truncateIfNeeded(); err != nil {
		_ = file.Close()
		return nil, nil, err
	}
	return writer, file, nil
}

func (w *logFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.file.Write(p)
	if err != nil {
		return n, err
	}
	if err := w.truncateIfNeeded(); err != nil {
		return n, err
	}
	return n, nil
}

func (w *logFileWriter) truncateIfNeeded() error {
	info, err := w.file.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size <= w.max {
		return nil
	}

	buf := make([]byte, w.keep)
	if _, err := w.file.Seek(size-w.keep, io.SeekStart); err != nil {
		return err
	}
	n, err := io.ReadFull(w.file, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return err
	}
	buf = buf[:n]

	if err := w.file.Truncate(0); err != nil {
		return err
	}
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := w.file.Write(buf); err != nil {
		return err
	}
	_, err = w.file.Seek(0, io.SeekEnd)
	return err
}
