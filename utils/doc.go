// Package utils provides small helpers shared by the feed and board
// packages: great-circle distance, ISO8601 formatting and the exponential
// back-off used when fetching feeds.
package utils
