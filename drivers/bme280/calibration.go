package bme280

// Calibration holds the factory trimming coefficients read from NVM.
type Calibration struct {
	T1 uint16
	T2 int16
	T3 int16

	P1 uint16
	P2 int16
	P3 int16
	P4 int16
	P5 int16
	P6 int16
	P7 int16
	P8 int16
	P9 int16

	H1 uint8
	H2 int16
	H3 uint8
	H4 int16
	H5 int16
	H6 int8
}

// DecodeCalibration builds a Calibration from the two NVM blocks:
// first is calib00..calib25 starting at 0x88, second is calib26..calib32
// starting at 0xE1. Offsets below are relative to the start of each block.
//
// H4 and H5 share the middle byte of second[3:6]. They are 12-bit values
// kept in int16 without sign extension, exactly as the reference code does.
func DecodeCalibration(first, second []byte) (Calibration, error) {
	if len(first) < calibFirstLen || len(second) < calibSecondLen {
		return Calibration{}, ErrInvalidData
	}
	var c Calibration
	c.T1 = le16(first[0:])
	c.T2 = int16(le16(first[2:]))
	c.T3 = int16(le16(first[4:]))
	c.P1 = le16(first[6:])
	c.P2 = int16(le16(first[8:]))
	c.P3 = int16(le16(first[10:]))
	c.P4 = int16(le16(first[12:]))
	c.P5 = int16(le16(first[14:]))
	c.P6 = int16(le16(first[16:]))
	c.P7 = int16(le16(first[18:]))
	c.P8 = int16(le16(first[20:]))
	c.P9 = int16(le16(first[22:]))
	// first[24] is reserved.
	c.H1 = first[25]

	c.H2 = int16(le16(second[0:]))
	c.H3 = second[2]
	c.H4 = int16(second[3])<<4 | int16(second[4])&0x0F
	c.H5 = (int16(second[4])&0xF0)>>4 | int16(second[5])<<4
	c.H6 = int8(second[6])
	return c, nil
}

func le16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }
