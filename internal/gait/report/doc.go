// Package report renders offline views of a processed gait session: an
// interactive HTML timeline of foot velocity and phases (go-echarts) and a
// static PNG of joint-angle traces (gonum/plot).
//
// Reports are built from recorded pipeline output after the stream has
// ended and never run inside the per-frame path.
package report
