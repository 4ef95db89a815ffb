//go:build !unix

package fsutil

// Without flock only the in-process lock applies.
func lockFile(string) (func(), error) {
	return func() {}, nil
}
