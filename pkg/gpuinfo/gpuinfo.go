// Package gpuinfo parses nvidia-smi query output and classifies devices by
// their memory usage.
package gpuinfo

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Device is one GPU row from the query output.
type Device struct {
	Index         int
	Name          string
	MemoryUsedMB  uint64
	MemoryTotalMB uint64
}

// ParseError indicates that the query tool emitted a line the parser does not
// understand. Any single malformed line aborts the whole report.
type ParseError struct {
	Line   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unexpected nvidia-smi output line %q: %s", e.Line, e.Reason)
}

// Parse converts raw CSV query output (index, name, memory.used, memory.total)
// into an ordered device list. Blank lines are skipped.
func Parse(out []byte) ([]Device, error) {
	var devices []Device
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) != 4 {
			return nil, &ParseError{Line: line, Reason: fmt.Sprintf("want 4 fields, got %d", len(parts))}
		}
		index, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil || index < 0 {
			return nil, &ParseError{Line: line, Reason: "bad device index"}
		}
		used, err := parseMemoryMB(parts[2])
		if err != nil {
			return nil, &ParseError{Line: line, Reason: "bad memory.used"}
		}
		total, err := parseMemoryMB(parts[3])
		if err != nil {
			return nil, &ParseError{Line: line, Reason: "bad memory.total"}
		}
		devices = append(devices, Device{
			Index:         index,
			Name:          strings.TrimSpace(parts[1]),
			MemoryUsedMB:  used,
			MemoryTotalMB: total,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return devices, nil
}

// parseMemoryMB accepts both nounits output ("250") and suffixed values
// ("250 MiB"), since wrapper commands do not always honor --format=nounits.
func parseMemoryMB(field string) (uint64, error) {
	s := strings.TrimSpace(field)
	s = strings.TrimSpace(strings.TrimSuffix(s, "MiB"))
	return strconv.ParseUint(s, 10, 64)
}

// Free returns the devices whose used memory is strictly below thresholdMB,
// preserving query order.
func Free(devices []Device, thresholdMB uint64) []Device {
	var free []Device
	for _, d := range devices {
		if d.MemoryUsedMB < thresholdMB {
			free = append(free, d)
		}
	}
	return free
}
