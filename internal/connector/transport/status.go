package transport

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

// Status is this module's rendering of the connector handle's
// Alive{memory, cpu}/Dead status: either the worker process is dead, or
// it is alive with a best-effort resource reading attached.
//
// Memory and CPU are sourced from /proc/<pid> on Linux, the only
// platform this transport is deployed on; on platforms without a /proc
// filesystem (or if the read races the process exiting) they are left
// at zero while Alive still reflects the real go-plugin client state.
// No library in this module's retrieval pack grounds a portable
// process-stats reading (see DESIGN.md), so this is a direct stdlib
// /proc reader rather than a wrapped dependency.
type Status struct {
	Alive bool

	// Memory is the process's resident set size, in bytes.
	Memory uint64

	// CPU is cumulative CPU time consumed by the process since it
	// started, in seconds. This is a running total, not an
	// instantaneous utilization percentage: a single /proc read can't
	// produce a percentage without a second sample to diff against.
	CPU float64
}

// clockTicksPerSecond is sysconf(_SC_CLK_TCK) on every Linux platform
// this module targets.
const clockTicksPerSecond = 100

// Status reports the worker's liveness and, best-effort, its resource
// usage.
func (w *Worker) Status() Status {
	if w.client.Exited() {
		return Status{Alive: false}
	}
	if w.pid <= 0 {
		return Status{Alive: true}
	}
	mem, cpu, err := readProcStatus(w.pid)
	if err != nil {
		return Status{Alive: true}
	}
	return Status{Alive: true, Memory: mem, CPU: cpu}
}

// readProcStatus reads /proc/<pid>/stat for cumulative CPU time and
// /proc/<pid>/status for resident memory.
func readProcStatus(pid int) (memBytes uint64, cpuSeconds float64, err error) {
	cpuSeconds, err = readProcStat(pid)
	if err != nil {
		return 0, 0, err
	}
	memBytes, err = readProcStatusMem(pid)
	if err != nil {
		return 0, 0, err
	}
	return memBytes, cpuSeconds, nil
}

// readProcStat parses the utime/stime fields (14th and 15th, in clock
// ticks) out of /proc/<pid>/stat, per proc(5). The comm field (2nd) is
// parenthesized and may itself contain spaces, so the field offsets are
// counted from the closing paren rather than by naive whitespace split.
func readProcStat(pid int) (float64, error) {
	raw, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/stat")
	if err != nil {
		return 0, err
	}
	line := string(raw)
	close := strings.LastIndexByte(line, ')')
	if close < 0 {
		return 0, os.ErrInvalid
	}
	fields := strings.Fields(line[close+1:])
	// fields[0] is state (field 3); utime is field 14, stime field 15,
	// i.e. fields[11] and fields[12] in this post-comm slice.
	if len(fields) < 13 {
		return 0, os.ErrInvalid
	}
	utime, err := strconv.ParseUint(fields[11], 10, 64)
	if err != nil {
		return 0, err
	}
	stime, err := strconv.ParseUint(fields[12], 10, 64)
	if err != nil {
		return 0, err
	}
	return float64(utime+stime) / clockTicksPerSecond, nil
}

// readProcStatusMem parses VmRSS out of /proc/<pid>/status, converting
// from the kB proc reports to bytes.
func readProcStatusMem(pid int) (uint64, error) {
	f, err := os.Open("/proc/" + strconv.Itoa(pid) + "/status")
	if err != nil {
		return 0, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "VmRSS:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0, os.ErrInvalid
		}
		kb, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return 0, err
		}
		return kb * 1024, nil
	}
	return 0, os.ErrInvalid
}
