// Package valoconfig resolves the on-disk configuration for a kernel
// instance: dimension, pool capacities, snapshot/log/checkpoint paths,
// default search parameters, and replication tuning. It is the home for
// everything cmd/valo-verify and cmd/valo-shell need to open the same
// kernel configuration a running instance used.
package valoconfig
