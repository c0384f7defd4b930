package util

import "testing"

func TestDecodeJSON(t *testing.T) {
	type P struct {
		Bus  string `json:"bus"`
		Addr uint16 `json:"addr"`
	}

	for name, in := range map[string]any{
		"bytes":  []byte(`{"bus":"i2c0","addr":119}`),
		"string": `{"bus":"i2c0","addr":119}`,
		"map":    map[string]any{"bus": "i2c0", "addr": 119},
	} {
		var p P
		if err := DecodeJSON(in, &p); err != nil {
			t.Fatalf("%s: decode failed: %v", name, err)
		}
		if p.Bus != "i2c0" || p.Addr != 0x77 {
			t.Fatalf("%s: unexpected result: %+v", name, p)
		}
	}
}

func TestDecodeJSONRejectsBadInput(t *testing.T) {
	var p struct{ Addr uint16 }
	if err := DecodeJSON(`{"Addr":-1}`, &p); err == nil {
		t.Fatal("negative address decoded")
	}
	if err := DecodeJSON(func() {}, &p); err == nil {
		t.Fatal("unmarshalable source decoded")
	}
}
