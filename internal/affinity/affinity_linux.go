//go:build linux

package affinity

import "golang.org/x/sys/unix"

// Supported reports whether Pin can restrict threads to a CPU
func Supported() bool {
	return true
}

// pin restricts the calling thread to cpu. The goroutine must be locked to
// its thread, otherwise the scheduler may move it elsewhere.
func pin(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	// pid 0 targets the calling thread
	return unix.SchedSetaffinity(0, &set)
}

// current returns the CPUs the calling thread may run on
func current() ([]int, error) {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return nil, err
	}
	cpus := make([]int, 0, set.Count())
	for cpu := 0; len(cpus) < cap(cpus); cpu++ {
		if set.IsSet(cpu) {
			cpus = append(cpus, cpu)
		}
	}
	return cpus, nil
}
