package hwsim

// AHT20 answers like a calibrated AHT20 that always has a fresh sample of
// the given 20-bit raw readings.
func AHT20(rawTemp, rawHum uint32) Responder {
	return func(_ uint16, w, r []byte) error {
		switch {
		case len(w) == 1 && w[0] == 0x71 && len(r) == 1: // status
			r[0] = 0x18
		case len(w) == 0 && len(r) >= 6:
			r[0] = 0x1C
			r[1] = byte(rawHum >> 12)
			r[2] = byte(rawHum >> 4)
			r[3] = byte(rawHum<<4) | byte(rawTemp>>16)&0x0F
			r[4] = byte(rawTemp >> 8)
			r[5] = byte(rawTemp)
		}
		return nil
	}
}

// SHTC3 answers measurement commands with the given 16-bit raw readings.
func SHTC3(rawTemp, rawHum uint16) Responder {
	return func(_ uint16, w, r []byte) error {
		if len(w) == 2 && w[0] == 0x7C && w[1] == 0xA2 && len(r) >= 6 {
			r[0], r[1] = byte(rawTemp>>8), byte(rawTemp)
			r[3], r[4] = byte(rawHum>>8), byte(rawHum)
		}
		return nil
	}
}
