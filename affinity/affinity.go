// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// CPU mask helpers shared by the PE locator, the examples and the simulator.

package affinity

import (
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// MaxCPUs is the capacity of unix.CPUSet (glibc CPU_SETSIZE).
const MaxCPUs = 1024

// Single returns a mask holding only cpu.
func Single(cpu int) unix.CPUSet {
	var set unix.CPUSet
	set.Set(cpu)
	return set
}

// Of returns a mask holding all of cpus.
func Of(cpus ...int) unix.CPUSet {
	var set unix.CPUSet
	for _, c := range cpus {
		set.Set(c)
	}
	return set
}

// Or returns the union of a and b.
func Or(a, b unix.CPUSet) unix.CPUSet {
	var out unix.CPUSet
	for i := range out {
		out[i] = a[i] | b[i]
	}
	return out
}

// NextCPU returns the first CPU in set greater than cpu, or -1.
// Pass -1 to get the first CPU.
func NextCPU(set *unix.CPUSet, cpu int) int {
	for i := cpu + 1; i < MaxCPUs; i++ {
		if set.IsSet(i) {
			return i
		}
	}
	return -1
}

// CPUs lists the CPUs in set in ascending order.
func CPUs(set *unix.CPUSet) []int {
	out := make([]int, 0, set.Count())
	for c := NextCPU(set, -1); c >= 0; c = NextCPU(set, c) {
		out = append(out, c)
	}
	return out
}

// Format renders set as a comma separated list, e.g. "2,3,5".
func Format(set *unix.CPUSet) string {
	cpus := CPUs(set)
	parts := make([]string, len(cpus))
	for i, c := range cpus {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, ",")
}
