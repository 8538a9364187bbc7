package utils

import "io"

type flusher interface {
	Flush() error
}

type flushingWriter struct {
	writer  io.Writer
	flusher flusher
}

// NewFlushingWriter returns a writer that flushes after every write when the destination supports
// Flush. Destinations without Flush are returned unchanged.
func NewFlushingWriter(writer io.Writer) io.Writer {
	if writer == nil {
		return nil
	}
	destinationFlusher, supportsFlush := writer.(flusher)
	if !supportsFlush {
		return writer
	}
	return &flushingWriter{writer: writer, flusher: destinationFlusher}
}

func (writer *flushingWriter) Write(data []byte) (int, error) {
	bytesWritten, writeError := writer.writer.Write(data)
	if writeError != nil {
		return bytesWritten, writeError
	}
	if flushError := writer.flusher.Flush(); flushError != nil {
		return bytesWritten, flushError
	}
	return bytesWritten, nil
}
