// Package scheduler is the single process every worker registers with at
// startup; it hands back the rest of the cluster's addresses once every
// required slot has checked in.
package scheduler
