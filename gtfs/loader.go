package gtfs

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/MKuranowski/go-extra-lib/encoding/mcsv"
	"github.com/MKuranowski/go-extra-lib/resource"
)

// Source produces a fresh static dataset.
type Source interface {
	Load(ctx context.Context) (*Dataset, error)
}

// ErrUnchanged is returned by a Source whose underlying data did not change
// since the previous Load.
var ErrUnchanged = errors.New("gtfs: static data unchanged")

// LoadZipBytes parses an in-memory GTFS zip archive.
func LoadZipBytes(data []byte) (*Dataset, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open gtfs zip: %w", err)
	}
	return LoadFS(zr)
}

// LoadFS reads the board tables from a GTFS directory or zip file system.
// Missing optional tables leave the corresponding slice empty.
func LoadFS(gtfs fs.FS) (*Dataset, error) {
	ds := &Dataset{FetchedAt: time.Now()}
	readers := []struct {
		name     string
		required bool
		consume  func(map[string]string)
	}{
		{"routes.txt", true, func(r map[string]string) {
			ds.Routes = append(ds.Routes, Route{
				RouteID:        field(r, "route_id"),
				RouteShortName: field(r, "route_short_name"),
				RouteLongName:  field(r, "route_long_name"),
				RouteType:      field(r, "route_type"),
			})
		}},
		{"trips.txt", true, func(r map[string]string) {
			ds.Trips = append(ds.Trips, Trip{
				TripID:               field(r, "trip_id"),
				RouteID:              field(r, "route_id"),
				ServiceID:            field(r, "service_id"),
				TripHeadsign:         field(r, "trip_headsign"),
				DirectionID:          field(r, "direction_id"),
				WheelchairAccessible: field(r, "wheelchair_accessible"),
			})
		}},
		{"stops.txt", true, func(r map[string]string) {
			ds.Stops = append(ds.Stops, Stop{
				StopID:       field(r, "stop_id"),
				StopName:     field(r, "stop_name"),
				StopLat:      field(r, "stop_lat"),
				StopLon:      field(r, "stop_lon"),
				PlatformCode: field(r, "platform_code"),
			})
		}},
		{"stop_times.txt", true, func(r map[string]string) {
			ds.StopTimes = append(ds.StopTimes, StopTime{
				TripID:        field(r, "trip_id"),
				StopID:        field(r, "stop_id"),
				StopSequence:  field(r, "stop_sequence"),
				ArrivalTime:   field(r, "arrival_time"),
				DepartureTime: field(r, "departure_time"),
				StopPlatform:  field(r, "stop_platform"),
			})
		}},
		{"calendar.txt", false, func(r map[string]string) {
			ds.Calendar = append(ds.Calendar, CalendarEntry{
				ServiceID: field(r, "service_id"),
				Monday:    field(r, "monday"),
				Tuesday:   field(r, "tuesday"),
				Wednesday: field(r, "wednesday"),
				Thursday:  field(r, "thursday"),
				Friday:    field(r, "friday"),
				Saturday:  field(r, "saturday"),
				Sunday:    field(r, "sunday"),
				StartDate: field(r, "start_date"),
				EndDate:   field(r, "end_date"),
			})
		}},
		{"calendar_dates.txt", false, func(r map[string]string) {
			ds.CalendarDates = append(ds.CalendarDates, CalendarDate{
				ServiceID:     field(r, "service_id"),
				Date:          field(r, "date"),
				ExceptionType: field(r, "exception_type"),
			})
		}},
	}
	for _, t := range readers {
		if err := readTable(gtfs, t.name, t.required, t.consume); err != nil {
			return nil, err
		}
	}
	log.Printf("gtfs: loaded %d routes, %d trips, %d stops, %d stop_times",
		len(ds.Routes), len(ds.Trips), len(ds.Stops), len(ds.StopTimes))
	return ds, nil
}

func readTable(gtfs fs.FS, name string, required bool, consume func(map[string]string)) error {
	f, err := gtfs.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		if required {
			return fmt.Errorf("%s: missing from dataset", name)
		}
		return nil
	} else if err != nil {
		return fmt.Errorf("%s: Open: %w", name, err)
	}
	defer f.Close()

	r := mcsv.NewReader(f)
	r.ReuseRecord = true
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return fmt.Errorf("%s: Read: %w", name, err)
		}
		consume(record)
	}
	return nil
}

// field returns a trimmed column value, tolerating a UTF-8 BOM on the
// first header.
func field(record map[string]string, col string) string {
	if v, ok := record[col]; ok {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(record["\ufeff"+col])
}

type readAtSeeker interface {
	io.ReaderAt
	io.Seeker
}

// ResourceSource loads a GTFS zip through a go-extra-lib resource, so local
// files and remote downloads share one code path. Unchanged content yields
// ErrUnchanged. After a failed Load the next fetch is unconditional, so a
// retry never mistakes the failure for unchanged data.
type ResourceSource struct {
	R resource.Interface

	failed bool
}

// NewZipFileSource reads a local zip, re-checking it at most once per minInterval.
func NewZipFileSource(path string, minInterval time.Duration) *ResourceSource {
	return &ResourceSource{R: &resource.TimeLimited{
		R:                  resource.Local(path),
		MinimalTimeBetween: minInterval,
	}}
}

// NewHTTPSource downloads a remote zip with conditional requests
// (If-None-Match / If-Modified-Since), at most once per minInterval.
// A nil client uses http.DefaultClient.
func NewHTTPSource(url string, client *http.Client, minInterval time.Duration) *ResourceSource {
	r := resource.HTTPGet(url)
	r.Client = client
	return &ResourceSource{R: &resource.TimeLimited{
		R:                  r,
		MinimalTimeBetween: minInterval,
	}}
}

func (s *ResourceSource) Load(ctx context.Context) (*Dataset, error) {
	ds, err := s.load()
	s.failed = err != nil && !errors.Is(err, ErrUnchanged)
	return ds, err
}

func (s *ResourceSource) load() (*Dataset, error) {
	mode := resource.Conditional
	if s.failed {
		mode = resource.Unconditional
	}
	body, _, err := s.R.Fetch(mode)
	if err != nil {
		return nil, fmt.Errorf("gtfs resource fetch: %w", err)
	}
	if body == nil {
		return nil, ErrUnchanged
	}
	defer body.Close()
	file, ok := body.(readAtSeeker)
	if !ok {
		data, err := io.ReadAll(body)
		if err != nil {
			return nil, fmt.Errorf("gtfs resource read: %w", err)
		}
		return LoadZipBytes(data)
	}
	size, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("gtfs resource seek: %w", err)
	}
	zr, err := zip.NewReader(file, size)
	if err != nil {
		return nil, fmt.Errorf("open gtfs zip: %w", err)
	}
	return LoadFS(zr)
}
