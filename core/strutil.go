package core

// itoa formats n in decimal without fmt
func itoa(n int) string {
	if n < 0 {
		return "-" + utoa(uint32(-n))
	}
	return utoa(uint32(n))
}

// utoa formats n in decimal without fmt
func utoa(n uint32) string {
	var buf [10]byte
	pos := len(buf)
	for {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
		if n == 0 {
			break
		}
	}
	return string(buf[pos:])
}

// valueToString renders a dictionary constant. Constants are either names
// (MCU) or register-sized numbers (CLOCK_FREQ, preset N values); anything
// else renders empty.
func valueToString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case uint32:
		return utoa(val)
	}
	return ""
}
