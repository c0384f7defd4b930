package bme280

import (
	"errors"
	"testing"

	"envnode/drivers/bme280/bme280sim"
)

func TestDecodeCalibrationReference(t *testing.T) {
	c, err := DecodeCalibration(bme280sim.DefaultCalibFirst, bme280sim.DefaultCalibSecond)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c != refCalib {
		t.Fatalf("decoded %+v\nwant    %+v", c, refCalib)
	}
}

func TestDecodeCalibrationDeterministic(t *testing.T) {
	a, _ := DecodeCalibration(bme280sim.DefaultCalibFirst, bme280sim.DefaultCalibSecond)
	b, _ := DecodeCalibration(bme280sim.DefaultCalibFirst, bme280sim.DefaultCalibSecond)
	if a != b {
		t.Fatal("same input decoded differently")
	}
}

func TestDecodeCalibrationPackedH4H5(t *testing.T) {
	first := make([]byte, calibFirstLen)
	cases := []struct {
		name   string
		abc    [3]byte
		h4, h5 int16
	}{
		{"zeros", [3]byte{0x00, 0x00, 0x00}, 0, 0},
		{"ones", [3]byte{0xFF, 0xFF, 0xFF}, 0x0FFF, 0x0FFF},
		{"split nibbles", [3]byte{0x12, 0x34, 0x56}, 0x0124, 0x0563},
	}
	for _, tc := range cases {
		second := []byte{0, 0, 0, tc.abc[0], tc.abc[1], tc.abc[2], 0}
		c, err := DecodeCalibration(first, second)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if c.H4 != tc.h4 || c.H5 != tc.h5 {
			t.Errorf("%s: h4=%#x h5=%#x, want %#x %#x", tc.name, c.H4, c.H5, tc.h4, tc.h5)
		}
	}
}

func TestDecodeCalibrationSignedFields(t *testing.T) {
	first := make([]byte, calibFirstLen)
	for i := range first {
		first[i] = 0xFF
	}
	second := []byte{0xFF, 0xFF, 0xFF, 0, 0, 0, 0x80}
	c, err := DecodeCalibration(first, second)
	if err != nil {
		t.Fatal(err)
	}
	if c.T1 != 0xFFFF || c.P1 != 0xFFFF {
		t.Errorf("unsigned fields: T1=%d P1=%d", c.T1, c.P1)
	}
	if c.T2 != -1 || c.P9 != -1 || c.H2 != -1 {
		t.Errorf("signed fields: T2=%d P9=%d H2=%d", c.T2, c.P9, c.H2)
	}
	if c.H1 != 0xFF || c.H3 != 0xFF || c.H6 != -128 {
		t.Errorf("byte fields: H1=%d H3=%d H6=%d", c.H1, c.H3, c.H6)
	}
}

func TestDecodeCalibrationShortBlocks(t *testing.T) {
	if _, err := DecodeCalibration(make([]byte, 24), make([]byte, 7)); !errors.Is(err, ErrInvalidData) {
		t.Fatalf("short first block: err = %v", err)
	}
	if _, err := DecodeCalibration(make([]byte, 26), make([]byte, 6)); !errors.Is(err, ErrInvalidData) {
		t.Fatalf("short second block: err = %v", err)
	}
}
