package gtfs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// undefinedColumn is the SQLSTATE Postgres reports for a missing column.
const undefinedColumn = "42703"

// PostgresSource reads the static tables from a database populated by a
// GTFS importer (one table per GTFS file, standard column names).
type PostgresSource struct {
	db *sql.DB
}

// OpenPostgres opens a pooled connection through the pgx stdlib driver.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresSource, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresSource{db: db}, nil
}

func (s *PostgresSource) Close() error { return s.db.Close() }

// Columns are cast to text so the dataset keeps GTFS string semantics
// regardless of how the importer typed them. Dates and times are rendered
// back into their GTFS file formats.
const (
	qRoutes = `SELECT route_id::text, COALESCE(route_short_name::text, ''), COALESCE(route_long_name::text, ''),
  COALESCE(route_type::text, '') FROM routes`
	qTrips = `SELECT trip_id::text, route_id::text, service_id::text, COALESCE(trip_headsign::text, ''),
  COALESCE(direction_id::text, ''), COALESCE(wheelchair_accessible::text, '') FROM trips`
	qStops = `SELECT stop_id::text, COALESCE(stop_name::text, ''), COALESCE(stop_lat::text, ''),
  COALESCE(stop_lon::text, ''), COALESCE(platform_code::text, '') FROM stops`
	// stop_times is read in table order, which importers fill in file
	// order; posts are numbered by first appearance in that order.
	qStopTimes = `SELECT trip_id::text, stop_id::text, stop_sequence::text,
  COALESCE(arrival_time::text, ''), COALESCE(departure_time::text, ''),
  COALESCE(stop_platform::text, '') FROM stop_times`
	// stop_platform is an extension column; schemas without it fall back here.
	qStopTimesNoPlatform = `SELECT trip_id::text, stop_id::text, stop_sequence::text,
  COALESCE(arrival_time::text, ''), COALESCE(departure_time::text, ''),
  '' FROM stop_times`
	qCalendar = `SELECT service_id::text, monday::int::text, tuesday::int::text, wednesday::int::text,
  thursday::int::text, friday::int::text, saturday::int::text, sunday::int::text,
  to_char(start_date::date, 'YYYYMMDD'), to_char(end_date::date, 'YYYYMMDD') FROM calendar`
	qCalendarDates = `SELECT service_id::text, to_char(date::date, 'YYYYMMDD'), exception_type::int::text
  FROM calendar_dates`
)

func (s *PostgresSource) Load(ctx context.Context) (*Dataset, error) {
	ds := &Dataset{FetchedAt: time.Now()}

	if err := s.query(ctx, "routes", qRoutes, func(rows *sql.Rows) error {
		var r Route
		if err := rows.Scan(&r.RouteID, &r.RouteShortName, &r.RouteLongName, &r.RouteType); err != nil {
			return err
		}
		ds.Routes = append(ds.Routes, r)
		return nil
	}); err != nil {
		return nil, err
	}
	if err := s.query(ctx, "trips", qTrips, func(rows *sql.Rows) error {
		var t Trip
		if err := rows.Scan(&t.TripID, &t.RouteID, &t.ServiceID, &t.TripHeadsign, &t.DirectionID, &t.WheelchairAccessible); err != nil {
			return err
		}
		ds.Trips = append(ds.Trips, t)
		return nil
	}); err != nil {
		return nil, err
	}
	if err := s.query(ctx, "stops", qStops, func(rows *sql.Rows) error {
		var st Stop
		if err := rows.Scan(&st.StopID, &st.StopName, &st.StopLat, &st.StopLon, &st.PlatformCode); err != nil {
			return err
		}
		ds.Stops = append(ds.Stops, st)
		return nil
	}); err != nil {
		return nil, err
	}
	scanStopTime := func(rows *sql.Rows) error {
		var st StopTime
		if err := rows.Scan(&st.TripID, &st.StopID, &st.StopSequence, &st.ArrivalTime, &st.DepartureTime, &st.StopPlatform); err != nil {
			return err
		}
		st.ArrivalTime = normalizeIntervalTime(st.ArrivalTime)
		st.DepartureTime = normalizeIntervalTime(st.DepartureTime)
		ds.StopTimes = append(ds.StopTimes, st)
		return nil
	}
	err := s.query(ctx, "stop_times", qStopTimes, scanStopTime)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == undefinedColumn {
		ds.StopTimes = nil
		err = s.query(ctx, "stop_times", qStopTimesNoPlatform, scanStopTime)
	}
	if err != nil {
		return nil, err
	}
	if err := s.query(ctx, "calendar", qCalendar, func(rows *sql.Rows) error {
		var c CalendarEntry
		if err := rows.Scan(&c.ServiceID, &c.Monday, &c.Tuesday, &c.Wednesday, &c.Thursday,
			&c.Friday, &c.Saturday, &c.Sunday, &c.StartDate, &c.EndDate); err != nil {
			return err
		}
		ds.Calendar = append(ds.Calendar, c)
		return nil
	}); err != nil {
		return nil, err
	}
	if err := s.query(ctx, "calendar_dates", qCalendarDates, func(rows *sql.Rows) error {
		var cd CalendarDate
		if err := rows.Scan(&cd.ServiceID, &cd.Date, &cd.ExceptionType); err != nil {
			return err
		}
		ds.CalendarDates = append(ds.CalendarDates, cd)
		return nil
	}); err != nil {
		return nil, err
	}
	return ds, nil
}

func (s *PostgresSource) query(ctx context.Context, table, q string, scan func(*sql.Rows) error) error {
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("scan %s: %w", table, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate %s: %w", table, err)
	}
	return nil
}

// normalizeIntervalTime turns interval renderings such as "1 day 01:30:00"
// into GTFS "25:30:00".
func normalizeIntervalTime(s string) string {
	var days, h, m, sec int
	if n, _ := fmt.Sscanf(s, "%d day %d:%d:%d", &days, &h, &m, &sec); n == 4 {
		return fmt.Sprintf("%02d:%02d:%02d", days*24+h, m, sec)
	}
	if n, _ := fmt.Sscanf(s, "%d days %d:%d:%d", &days, &h, &m, &sec); n == 4 {
		return fmt.Sprintf("%02d:%02d:%02d", days*24+h, m, sec)
	}
	return s
}
