package camera

import "time"

// Camera is a configured DVR/IP-camera endpoint.
type Camera struct {
	ID        int64
	Name      string
	Host      string
	Port      int
	Username  string
	Model     string
	Enabled   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TestResult reports a connectivity probe.
type TestResult struct {
	CameraID  int64
	Online    bool
	LatencyMS int
	Message   string
}
