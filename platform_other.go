//go:build !linux

package audiosched

import "github.com/pkg/errors"

// acquireRealtimePriority has no portable implementation outside Linux in
// this module; callers already treat its failure as non-fatal (spec.md
// §4.8, §9).
func acquireRealtimePriority() error {
	return errors.New("audiosched: realtime priority acquisition not supported on this platform")
}
