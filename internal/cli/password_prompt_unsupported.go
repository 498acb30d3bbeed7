//go:build !windows && !linux && !darwin && !freebsd && !netbsd && !openbsd && !dragonfly

package cli

func disableEcho(uintptr) (func(), error) {
	return nil, errNoTerminal
}
