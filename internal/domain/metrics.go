package domain

// UsageMetrics is the aggregate usage snapshot served by
// GET /v1/metrics/usage.
type UsageMetrics struct {
	Registrations     int64   `json:"registrations"`
	LoginsSucceeded   int64   `json:"loginsSucceeded"`
	LoginsFailed      int64   `json:"loginsFailed"`
	ReceiptsIssued    int64   `json:"receiptsIssued"`
	CalculationsTotal int64   `json:"calculationsTotal"`
	CacheHitRate      float64 `json:"cacheHitRate"`
	Period            string  `json:"period"`
}

// ServiceHealth reports the status of one dependency probed by
// the health endpoint.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latency_ms"`
	LastChecked string `json:"last_checked"`
}

// HealthStatus is the aggregate health report.
type HealthStatus struct {
	Status   string          `json:"status"`
	Services []ServiceHealth `json:"services"`
}
