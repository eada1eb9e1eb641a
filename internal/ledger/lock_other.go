//go:build !unix

package ledger

// acquireLock is a no-op where flock is unavailable; the single-writer
// assumption then rests on the user.
func acquireLock(string) (func(), error) {
	return func() {}, nil
}
