package audit

import (
	"encoding/json"
	"fmt"
	"log/syslog"
	"sync"

	"github.com/compliance-engine/go-core/pkg/types"
)

// syslogWriter mirrors audit entries to syslog for off-host retention.
type syslogWriter struct {
	writer *syslog.Writer
	mu     sync.Mutex
}

// NewSyslogWriter creates a syslog mirror writer.
func NewSyslogWriter(protocol, address string) (Writer, error) {
	if protocol == "" {
		protocol = "tcp"
	}

	writer, err := syslog.Dial(protocol, address, syslog.LOG_INFO|syslog.LOG_LOCAL0, "compliance-core")
	if err != nil {
		return nil, fmt.Errorf("connect to syslog: %w", err)
	}

	return &syslogWriter{writer: writer}, nil
}

func (w *syslogWriter) Write(entry *types.AuditEntry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	return w.writer.Info(string(data))
}

func (w *syslogWriter) Close() error {
	return w.writer.Close()
}
