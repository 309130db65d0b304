package api

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type CapacityRow struct {
	Degradation int `json:"degradation"`
	Envelope    int `json:"envelope_bytes"`
	Message     int `json:"message_bytes"`
	MessageECC  int `json:"message_bytes_ecc"`
}

type CapacityResponse struct {
	Success            bool          `json:"success"`
	Filename           string        `json:"filename"`
	Format             string        `json:"format"`
	Type               string        `json:"type"`
	DefaultDegradation int           `json:"default_degradation"`
	Capacities         []CapacityRow `json:"capacities"`
}

type AnalyzeResponse struct {
	Success       bool      `json:"success"`
	Format        string    `json:"format"`
	Samples       int       `json:"samples"`
	Average       float64   `json:"average_p_value"`
	Suspicious    bool      `json:"suspicious"`
	EstimatedSize int       `json:"estimated_size"`
	PValues       []float64 `json:"p_values"`
	MSE           *float64  `json:"mse,omitempty"`
	PSNR          *float64  `json:"psnr,omitempty"` // omitted when the files are identical
}
