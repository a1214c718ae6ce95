package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// JSONOutput is the document JSONExporter writes.
type JSONOutput struct {
	Metadata JSONMetadata `json:"metadata"`
	Summary  *Summary     `json:"summary"`
}

// JSONMetadata describes when and by which version a summary was written.
type JSONMetadata struct {
	GeneratedAt string `json:"generated_at"`
	Version     string `json:"version"`
}

// JSONExporter writes a Summary as JSON to a file, a writer or both.
type JSONExporter struct {
	writer   io.Writer
	filePath string
	pretty   bool
	version  string
}

// JSONOption configures a JSONExporter.
type JSONOption func(*JSONExporter)

// WithJSONWriter sets a writer that receives the output.
func WithJSONWriter(w io.Writer) JSONOption {
	return func(j *JSONExporter) {
		j.writer = w
	}
}

// WithJSONFile sets a file that receives the output.
func WithJSONFile(path string) JSONOption {
	return func(j *JSONExporter) {
		j.filePath = path
	}
}

func WithJSONPretty(pretty bool) JSONOption {
	return func(j *JSONExporter) {
		j.pretty = pretty
	}
}

func WithJSONVersion(version string) JSONOption {
	return func(j *JSONExporter) {
		j.version = version
	}
}

// NewJSONExporter creates an exporter with pretty output enabled.
func NewJSONExporter(opts ...JSONOption) *JSONExporter {
	j := &JSONExporter{pretty: true, version: "dev"}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Export writes summary to every configured destination.
func (j *JSONExporter) Export(summary *Summary) error {
	output := JSONOutput{
		Metadata: JSONMetadata{
			GeneratedAt: time.Now().Format(time.RFC3339),
			Version:     j.version,
		},
		Summary: summary,
	}

	var (
		data []byte
		err  error
	)
	if j.pretty {
		data, err = json.MarshalIndent(output, "", "  ")
	} else {
		data, err = json.Marshal(output)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}
	data = append(data, '\n')

	if j.filePath != "" {
		if err := os.WriteFile(j.filePath, data, 0644); err != nil {
			return fmt.Errorf("failed to write metrics file: %w", err)
		}
	}
	if j.writer != nil {
		if _, err := j.writer.Write(data); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}
