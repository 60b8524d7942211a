package metrics

import "testing"

func TestNullSink_NeverPanics(t *testing.T) {
	var s Sink = NullSink{}
	s.Gauge("request_time", 12.5, "path:/ok")
	s.Incr("cache_hit")
}

func TestDatadogSink_ImplementsSink(t *testing.T) {
	var _ Sink = NewDatadogSink("test-key")
}
