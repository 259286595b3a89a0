package domain

// ============================================================
// Health & Metrics responses
// ============================================================

// HealthStatus is returned by GET /healthz on the view server.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of the budgeting backend as seen from
// this client.
type ServiceHealth struct {
	Name         string `json:"name"`
	Status       string `json:"status"`
	LatencyMs    int64  `json:"latencyMs"`
	BreakerState string `json:"breakerState"`
	LastChecked  string `json:"lastChecked"`
}

// ClientMetrics is a point-in-time view of the client counters, printed by
// `mybudget status` and served at GET /status.
type ClientMetrics struct {
	APIRequests       int64            `json:"apiRequests"`
	APIErrors         map[string]int64 `json:"apiErrors"`
	SessionLogins     int64            `json:"sessionLogins"`
	SessionLogouts    int64            `json:"sessionLogouts"`
	SessionRevoked    int64            `json:"sessionRevoked"`
	StaleResults      int64            `json:"staleResults"`
	CategoryCacheRate float64          `json:"categoryCacheHitRate"`
}
