package bme280

// Integer compensation as published by Bosch (BME280 datasheet, section 4.2.3
// and the 64-bit pressure variant). Operation order, shifts and clamps must
// not change: results are compared bit for bit against reference vectors.
// Right shifts of signed values are arithmetic in Go.

// CompensateTemperature returns t_fine for a raw 20-bit temperature reading.
// Degrees Celsius are ((t_fine*5+128)>>8)/100.
func CompensateTemperature(adcT int32, c *Calibration) int32 {
	t1 := int32(c.T1)
	var1 := (((adcT >> 3) - (t1 << 1)) * int32(c.T2)) >> 11
	var2 := (((((adcT >> 4) - t1) * ((adcT >> 4) - t1)) >> 12) * int32(c.T3)) >> 14
	return var1 + var2
}

// CompensateHumidity returns relative humidity in Q22.10 (%RH * 1024),
// always within [0, 102400].
func CompensateHumidity(adcH uint16, tFine int32, c *Calibration) uint32 {
	h := int32(adcH)

	v := tFine - 76800
	v = ((((h << 14) - (int32(c.H4) << 20) - (int32(c.H5) * v)) + 16384) >> 15) *
		(((((((v*int32(c.H6))>>10)*(((v*int32(c.H3))>>11)+32768))>>10)+2097152)*
			int32(c.H2) + 8192) >> 14)
	v = v - (((((v >> 15) * (v >> 15)) >> 7) * int32(c.H1)) >> 4)
	if v < 0 {
		v = 0
	}
	if v > 419430400 {
		v = 419430400
	}
	return uint32(v >> 12)
}

// CompensatePressure returns pressure in Pa as Q24.8 (Pa * 256). It returns 0
// without dividing when the calibration yields a zero denominator.
func CompensatePressure(adcP uint32, tFine int32, c *Calibration) uint32 {
	var1 := int64(tFine) - 128000
	var2 := var1 * var1 * int64(c.P6)
	var2 = var2 + ((var1 * int64(c.P5)) << 17)
	var2 = var2 + (int64(c.P4) << 35)
	var1 = ((var1 * var1 * int64(c.P3)) >> 8) + ((var1 * int64(c.P2)) << 12)
	var1 = (((int64(1) << 47) + var1) * int64(c.P1)) >> 33
	if var1 == 0 {
		return 0
	}
	p := 1048576 - int64(adcP)
	p = (((p << 31) - var2) * 3125) / var1
	var1 = (int64(c.P9) * (p >> 13) * (p >> 13)) >> 25
	var2 = (int64(c.P8) * p) >> 19
	p = ((p + var1 + var2) >> 8) + (int64(c.P7) << 4)
	return uint32(p)
}
