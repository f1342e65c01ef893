//go:build darwin || freebsd

package logger

import "golang.org/x/sys/unix"

const ioctlGetTermios = unix.TIOCGETA
