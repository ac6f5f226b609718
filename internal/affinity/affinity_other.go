//go:build !linux

package affinity

// Supported reports whether Pin can restrict threads to a CPU
func Supported() bool {
	return false
}

func pin(int) error {
	return ErrUnsupported
}

func current() ([]int, error) {
	return nil, ErrUnsupported
}
