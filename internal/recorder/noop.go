package recorder

// NoopRecorder is used when no database path is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordDiscovery(_ *DiscoveryEvent) error { return nil }
func (n *NoopRecorder) RecordEviction(_ *EvictionEvent) error   { return nil }
func (n *NoopRecorder) RecordSignal(_ *SignalEvent) error       { return nil }
func (n *NoopRecorder) RecordOrder(_ *OrderEvent) error         { return nil }
func (n *NoopRecorder) RecordSummary(_ *SummaryEvent) error     { return nil }
func (n *NoopRecorder) Close() error                            { return nil }
