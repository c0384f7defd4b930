package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: board ID (same value placed in ctx under CtxDeviceKey)
// Val: raw JSON bytes for that board
// -----------------------------------------------------------------------------

const cfgHost = `{
  "hal": {
    "devices": [
      {"id": "env0", "type": "bme280", "params": {"bus": "i2c0", "addr": 118, "profile": "default"}}
    ],
    "pollers": [
      {"domain": "env", "kind": "temperature", "name": "env0", "verb": "read", "interval_ms": 2000, "jitter_ms": 100}
    ]
  },
  "heartbeat": {
    "interval": 30
  }
}`

// Secondary address (SDO high), forced-mode weather profile.
const cfgHostAlt = `{
  "hal": {
    "devices": [
      {"id": "env0", "type": "bme280", "params": {"bus": "i2c0", "addr": 119, "profile": "weather"}}
    ],
    "pollers": [
      {"domain": "env", "kind": "temperature", "name": "env0", "verb": "read", "interval_ms": 60000}
    ]
  }
}`

var embeddedConfigs = map[string][]byte{
	"host":     []byte(cfgHost),
	"host-alt": []byte(cfgHostAlt),
}
