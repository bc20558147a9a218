package onewire

import (
	"fmt"
	"strconv"
	"strings"
)

// The kernel reports DS18B20 readings in 12-bit mode; one bit is
// 0.0625 degrees.
const w1BitMultiplier = 0.0625

// parseScratchpad decodes a w1_slave file. The file carries the raw
// scratchpad as hex byte pairs; the first two bytes are the little-endian
// two's-complement temperature register, so sub-zero readings have the MSB
// set. A CRC failure reads as ErrNotReady.
func parseScratchpad(id, data string) (float64, error) {
	if strings.Contains(data, "crc=") && !strings.Contains(data, "YES") {
		return 0, ErrNotReady
	}

	// First line starts "XX YY ..." — temperature LSB then MSB.
	if len(data) < 5 || data[2] != ' ' {
		return 0, fmt.Errorf("sensor %s: unexpected w1_slave format %q", id, firstLine(data))
	}
	hexStr := data[3:5] + data[0:2]
	raw, err := strconv.ParseUint(hexStr, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("sensor %s: unexpected w1_slave format %q", id, firstLine(data))
	}
	return float64(int16(raw)) * w1BitMultiplier, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
