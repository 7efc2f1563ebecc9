// Package halo exchanges particle data between neighboring ranks.
//
// Every exchange walks the axes in a fixed order and pairs each send with
// the matching receive, so all ranks issue the same sequence of
// synchronous messages. Refreshes go x, y, z; folds of accumulated data
// back to the owners go z, y, x.
package halo
