//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package cli

import "golang.org/x/sys/unix"

func disableEcho(fd uintptr) (func(), error) {
	saved, err := unix.IoctlGetTermios(int(fd), termiosGet)
	if err != nil {
		return nil, errNoTerminal
	}
	silent := *saved
	silent.Lflag &^= unix.ECHO
	if err := unix.IoctlSetTermios(int(fd), termiosSet, &silent); err != nil {
		return nil, err
	}
	return func() { _ = unix.IoctlSetTermios(int(fd), termiosSet, saved) }, nil
}
