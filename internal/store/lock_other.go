//go:build !unix && !windows

package store

import "os"

// No advisory locks here; a single process is assumed.
func tryLock(*os.File) (bool, error) { return true, nil }

func unlockFile(*os.File) {}
