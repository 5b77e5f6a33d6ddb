//go:build !(linux || darwin || freebsd)

package storage

import "errors"

func statfs(string) (Stats, error) {
	return Stats{}, errors.New("storage statistics are not supported on this platform")
}
