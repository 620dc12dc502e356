package report

import (
	"encoding/json"
	"io"
)

// JSONWriter renders reports as JSON.
type JSONWriter struct {
	baseWriter

	indent string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithPrettyPrint indents the output by two spaces.
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = "  "
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write implements Writer. The output ends with a newline.
func (w *JSONWriter) Write(report *Report) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent != "" {
		data, err = json.MarshalIndent(report, "", w.indent)
	} else {
		data, err = json.Marshal(report)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}
