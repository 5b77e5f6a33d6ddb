//go:build linux || darwin || freebsd

package storage

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// maxPathLength mirrors PATH_MAX on the supported platforms.
const maxPathLength = 4096

func statfs(root string) (Stats, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(root, &st); err != nil {
		return Stats{}, fmt.Errorf("statfs %s: %w", root, err)
	}

	bsize := uint64(st.Bsize)
	total := uint64(st.Blocks) * bsize
	free := uint64(st.Bfree) * bsize

	return Stats{
		TotalBytes:    total,
		UsedBytes:     total - free,
		BlockSize:     bsize,
		MaxPathLength: maxPathLength,
	}, nil
}
