package types

// Heartbeat is published retained on sys/heartbeat on every tick.
type Heartbeat struct {
	Seq      uint32 `json:"seq"`
	UptimeS  uint32 `json:"uptime_s"`
	HALLevel string `json:"hal_level"` // last seen hal/state level
}
