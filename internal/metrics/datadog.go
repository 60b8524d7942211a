package metrics

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cloudshipai/gitconfd/internal/logging"
)

const seriesEndpoint = "https://api.datadoghq.com/api/v2/series"

// DatadogSink posts gauges and counters to the Datadog series API. A
// failure to post is logged and otherwise swallowed — metrics must never
// fail a request.
type DatadogSink struct {
	apiKey string
	client *http.Client
}

// NewDatadogSink builds a sink that authenticates with apiKey.
func NewDatadogSink(apiKey string) *DatadogSink {
	return &DatadogSink{apiKey: apiKey, client: &http.Client{Timeout: 5 * time.Second}}
}

type seriesPayload struct {
	Series []metricSeries `json:"series"`
}

type metricSeries struct {
	Metric string       `json:"metric"`
	Points [][2]float64 `json:"points"`
	Type   string       `json:"type"`
	Tags   []string     `json:"tags,omitempty"`
}

func (d *DatadogSink) send(name string, value float64, kind string, tags []string) {
	payload := seriesPayload{Series: []metricSeries{{
		Metric: name,
		Points: [][2]float64{{float64(time.Now().Unix()), value}},
		Type:   kind,
		Tags:   tags,
	}}}

	body, err := json.Marshal(payload)
	if err != nil {
		logging.Error("metrics: marshal %s: %v", name, err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, seriesEndpoint, bytes.NewReader(body))
	if err != nil {
		logging.Error("metrics: build request for %s: %v", name, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("DD-API-KEY", d.apiKey)

	resp, err := d.client.Do(req)
	if err != nil {
		logging.Error("metrics: post %s: %v", name, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		logging.Error("metrics: post %s: status %d", name, resp.StatusCode)
	}
}

// Gauge sends a point-in-time gauge value.
func (d *DatadogSink) Gauge(name string, value float64, tags ...string) {
	d.send(name, value, "gauge", tags)
}

// Incr sends a single count increment.
func (d *DatadogSink) Incr(name string, tags ...string) {
	d.send(name, 1, "count", tags)
}

var _ Sink = (*DatadogSink)(nil)
