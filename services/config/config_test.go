// config/config_test.go
package config

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"envnode/bus"
	"envnode/types"
)

func TestConfig_PublishEmbedded_RetainedPerKey(t *testing.T) {
	// Override lookup for this test.
	oldLookup := EmbeddedConfigLookup
	EmbeddedConfigLookup = func(device string) ([]byte, bool) {
		if device != "bench" {
			return nil, false
		}
		return []byte(`{
			"mode": "dev",
			"debug": true,
			"hal": {"devices": [{"id": "env0", "type": "bme280", "params": {"bus": "i2c1"}}]}
		}`), true
	}
	t.Cleanup(func() { EmbeddedConfigLookup = oldLookup })

	b := bus.NewBus(16)
	conn := b.NewConnection("test-config")
	svc := NewConfigService()

	ctx := context.WithValue(context.Background(), CtxDeviceKey, "bench")
	if err := svc.publishConfig(ctx, conn); err != nil {
		t.Fatalf("publish: %v", err)
	}

	// Retained messages arrive on subscribe.
	sub := conn.Subscribe(bus.T(configPrefix, "#"))

	got := map[string]any{}
	deadline := time.After(600 * time.Millisecond)
	for len(got) < 3 {
		select {
		case m := <-sub.Channel():
			if len(m.Topic) != 2 || m.Topic[0] != configPrefix {
				t.Fatalf("unexpected topic: %#v", m.Topic)
			}
			key, ok := m.Topic[1].(string)
			if !ok {
				t.Fatalf("topic[1] type %T, want string", m.Topic[1])
			}
			if !m.Retained {
				t.Fatalf("%s not retained", key)
			}
			got[key] = m.Payload
		case <-deadline:
			t.Fatalf("expected 3 retained messages, got %d (%v)", len(got), got)
		}
	}

	if got["mode"] != "dev" || got["debug"] != true {
		t.Fatalf("scalar sections = %v", got)
	}
	hal, ok := got["hal"].(map[string]any)
	if !ok {
		t.Fatalf("hal = %#v", got["hal"])
	}
	devs, ok := hal["devices"].([]any)
	if !ok || len(devs) != 1 {
		t.Fatalf("devices = %#v", hal["devices"])
	}
	params, _ := devs[0].(map[string]any)["params"].(map[string]any)
	if params["bus"] != "i2c1" {
		t.Fatalf("params = %#v", params)
	}
}

func TestConfig_Errors(t *testing.T) {
	conn := bus.NewBus(4).NewConnection("c")
	svc := NewConfigService()

	if err := svc.publishConfig(context.Background(), conn); err == nil {
		t.Fatal("expected error without device id")
	}
	ctx := context.WithValue(context.Background(), CtxDeviceKey, "no-such-board")
	if err := svc.publishConfig(ctx, conn); err == nil {
		t.Fatal("expected error for unknown board")
	}

	oldLookup := EmbeddedConfigLookup
	EmbeddedConfigLookup = func(string) ([]byte, bool) { return []byte(`[1,2]`), true }
	t.Cleanup(func() { EmbeddedConfigLookup = oldLookup })
	if err := svc.publishConfig(ctx, conn); err == nil {
		t.Fatal("expected error for non-object config")
	}
}

func TestEmbeddedBoardsDecode(t *testing.T) {
	for _, board := range Boards() {
		conn := bus.NewBus(8).NewConnection("c")
		ctx := context.WithValue(context.Background(), CtxDeviceKey, board)
		if err := NewConfigService().publishConfig(ctx, conn); err != nil {
			t.Fatalf("%s: %v", board, err)
		}
		sub := conn.Subscribe(bus.T(configPrefix, "hal"))
		select {
		case m := <-sub.Channel():
			var hc types.HALConfig
			b, err := json.Marshal(m.Payload)
			if err == nil {
				err = json.Unmarshal(b, &hc)
			}
			if err != nil || len(hc.Devices) == 0 || hc.Devices[0].Type != "bme280" || len(hc.Pollers) == 0 {
				t.Fatalf("%s: hal = %+v (%v)", board, hc, err)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("%s: no hal config", board)
		}
	}
}
