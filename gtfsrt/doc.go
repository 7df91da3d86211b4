// Package gtfsrt handles fetching, decoding and indexing GTFS-Realtime
// protobuf feeds.
//
// A single FeedMessage may carry trip updates, vehicle positions and
// service alerts. NewIndex folds the entities into per-trip lookups,
// keeping the most recent report per trip. Client fetches and decodes
// feeds behind a short-lived cache, and Poller keeps the latest decoded
// feed together with its loading and error state.
package gtfsrt
