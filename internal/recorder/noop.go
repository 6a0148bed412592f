package recorder

// NoopRecorder 未配置数据库时使用。
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordSpot(_ *SpotSnapshot) error   { return nil }
func (n *NoopRecorder) LatestSpot() (*SpotSnapshot, error) { return nil, nil }
func (n *NoopRecorder) Close() error                       { return nil }
