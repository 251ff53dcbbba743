//go:build !linux

package tools

// Memory and disk figures are only gathered on Linux; other platforms report
// the portable runtime fields alone.

func memoryStats() (total, available uint64) {
	return 0, 0
}

func diskStats(path string) (total, free uint64) {
	return 0, 0
}
