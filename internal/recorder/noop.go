package recorder

import (
	"time"

	"CryptoSentinel/internal/model"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordScan(_ *ScanRecord) error            { return nil }
func (n *NoopRecorder) RecordAlert(_ *AlertRecord) error          { return nil }
func (n *NoopRecorder) RecordClosure(_ *model.ClosureEvent) error { return nil }
func (n *NoopRecorder) Stats(_ time.Time) (Stats, error)          { return Stats{}, nil }
func (n *NoopRecorder) Close() error                              { return nil }
