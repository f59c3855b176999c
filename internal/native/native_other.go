//go:build !windows || (!amd64 && !arm64)

package native

func openDevice(uintptr) (Device, error) {
	return nil, ErrUnsupported
}

// CloseHandle closes an exported handle. A zero handle is ignored.
func CloseHandle(h Handle) error {
	if h == 0 {
		return nil
	}
	return ErrUnsupported
}
