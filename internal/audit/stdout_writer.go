package audit

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/compliance-engine/go-core/pkg/types"
)

// stdoutWriter mirrors audit entries to stdout as JSON lines.
type stdoutWriter struct {
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewStdoutWriter creates a stdout mirror writer.
func NewStdoutWriter() Writer {
	return &stdoutWriter{
		encoder: json.NewEncoder(os.Stdout),
	}
}

func (w *stdoutWriter) Write(entry *types.AuditEntry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.encoder.Encode(entry)
}

// Close is a no-op for stdout.
func (w *stdoutWriter) Close() error {
	return nil
}
