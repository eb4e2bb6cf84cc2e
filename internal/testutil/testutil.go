// Package testutil provides shared test utilities and fixtures.
//
// It centralises the synthetic landmark streams used across the gait
// packages so that scenario tests in different layers drive the same
// motion.
package testutil

import (
	"iter"
	"slices"

	"github.com/banshee-data/gait.report/internal/gait/l1landmarks"
)

// Seq returns frames as a lazy sequence.
func Seq(frames []l1landmarks.Frame) iter.Seq[l1landmarks.Frame] {
	return slices.Values(frames)
}
