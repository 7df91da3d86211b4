/*
Package gtfs provides GTFS static data loading and indexing for the
departure board.

A Dataset is an immutable snapshot of the tables the board needs (routes,
trips, stops, stop_times, calendar, calendar_dates). It can be produced by
any Source:

	// local zip, re-checked at most every 5 minutes
	src := gtfs.NewZipFileSource("gtfs.zip", 5*time.Minute)

	// remote zip, conditional GET at most every 5 minutes
	src := gtfs.NewHTTPSource("https://example.org/gtfs.zip", nil, 5*time.Minute)

	// tables imported into Postgres
	src, err := gtfs.OpenPostgres(ctx, os.Getenv("DATABASE_URL"))

Wrap any of them in a CachedSource to keep a gob copy on disk. A Provider
owns the latest dataset and refreshes it in the background.

# Derived data

NewIndex builds id lookups, ActiveServices resolves the services running on
a given day and PlatformStops collects the platform stops of a physical
stop. None of them are cached across recomputations, so a dataset reload
or a date change is picked up on the next pass.
*/
package gtfs
