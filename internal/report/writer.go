package report

import "io"

// Writer renders a Report to its destination and returns the number of
// bytes written.
type Writer interface {
	Write(report *Report) (int, error)
}

// MultiWriter writes a report to several Writers in order, stopping at the
// first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write implements Writer.
func (m *MultiWriter) Write(report *Report) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

const timeLayout = "2006-01-02 15:04:05 MST"
