package domain

// Decision - какой экран показать после запуска
type Decision string

const (
	DecisionNormal    Decision = "normal"
	DecisionAlternate Decision = "alternate"
)

// DeviceSignals - снимок состояния устройства на старте
type DeviceSignals struct {
	BatteryLevel int  `json:"battery_level"`
	VPNActive    bool `json:"vpn_active"`
}

// ProbeResult is the outcome of the single launch probe. Err is set when no
// response arrived at all.
type ProbeResult struct {
	StatusCode int
	Err        error
}
