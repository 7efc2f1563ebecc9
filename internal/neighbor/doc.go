// Package neighbor builds and caches per-particle neighbor lists.
//
// A list built with radius cutoff+skin stays complete until some particle
// has moved more than skin/2 from its reference position, checked over all
// ranks by [Cache.IsStillValid].
package neighbor
