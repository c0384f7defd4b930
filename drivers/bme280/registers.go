package bme280

// I2C addresses. SDO low selects Address, SDO high selects AddressAlt.
const (
	Address    = 0x76
	AddressAlt = 0x77
)

// ChipID is the value of the id register on a BME280.
const ChipID = 0x60

// Register map.
const (
	regCalib00  = 0x88 // calib00..calib25 (T1..P9, reserved, H1)
	regChipID   = 0xD0
	regReset    = 0xE0
	regCalib26  = 0xE1 // calib26..calib32 (H2..H6)
	regCtrlHum  = 0xF2
	regStatus   = 0xF3
	regCtrlMeas = 0xF4
	regConfig   = 0xF5
	regData     = 0xF7 // press_msb .. hum_lsb
)

const (
	cmdSoftReset = 0xB6

	statusMeasuring = 0x01 // bit 0: conversion running
	statusImUpdate  = 0x08 // bit 3: NVM data being copied to image registers

	calibFirstLen  = 26
	calibSecondLen = 7
	dataLen        = 8
)
