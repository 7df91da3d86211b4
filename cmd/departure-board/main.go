package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"time"

	departures "github.com/theoremus-urban-solutions/gtfs-departures"
	"github.com/theoremus-urban-solutions/gtfs-departures/board"
	"github.com/theoremus-urban-solutions/gtfs-departures/config"
	"github.com/theoremus-urban-solutions/gtfs-departures/gtfs"
	"github.com/theoremus-urban-solutions/gtfs-departures/gtfsrt"
	"github.com/theoremus-urban-solutions/gtfs-departures/metrics"
	"github.com/theoremus-urban-solutions/gtfs-departures/publisher"
	"github.com/theoremus-urban-solutions/gtfs-departures/refresh"
)

func main() {
	configPath := flag.String("config", "", "path to config.yml (default: ./config.yml or ./config/config.yml)")
	stopID := flag.String("stop", "", "stop id to track (overrides config)")
	preset := flag.String("p", "", "preset selector from board.presets")
	verbose := flag.Bool("v", false, "log skipped rows and source locations")
	flag.Parse()

	departures.InitLogging(*verbose)
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("config error: %v", err)
		}
		config.Config = *cfg
	} else if err := config.LoadAppConfig(); err != nil {
		log.Fatalf("config error: %v", err)
	}
	cfg := config.Config

	loc, err := cfg.Board.Location()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics setup
	var mcol *metrics.Collector
	var extraServers []*http.Server
	if cfg.Metrics.Addr != "" {
		mcol = metrics.NewCollector(cfg.RefreshInterval(), cfg.Board.WindowMinutes)
		extraServers = append(extraServers, mcol.Serve(cfg.Metrics.Addr))
	}

	src, closeSrc, err := staticSource(ctx, cfg)
	if err != nil {
		log.Fatalf("gtfs source error: %v", err)
	}
	defer closeSrc()

	engine := board.NewEngine(board.Options{
		WindowMinutes:     cfg.Board.WindowMinutes,
		DeparturesPerPost: cfg.Board.DeparturesPerPost,
		Directions:        cfg.Board.Directions,
		PinnedGroup:       cfg.Board.PinnedGroup,
		ArrivedMarker:     cfg.Board.ArrivedMarker,
		ArrivedFreshness:  time.Duration(cfg.Board.ArrivedFreshnessSec) * time.Second,
		PlatformPrefix:    cfg.Board.PlatformPrefix,
		PlatformSeparator: cfg.Board.PlatformSeparator,
		Language:          cfg.Board.Language,
		Location:          loc,
	}, nil)
	engine.Verbose = *verbose

	// Providers notify the controller, which is created right after them.
	var ctrl *refresh.Controller
	notify := func() {
		if ctrl != nil {
			ctrl.Notify()
		}
	}
	static := gtfs.NewProvider(src, notify)
	client := gtfsrt.NewClient(
		time.Duration(cfg.GTFSRT.TimeoutMS)*time.Millisecond,
		time.Duration(cfg.GTFSRT.CacheTTLMS)*time.Millisecond,
	)
	poller := gtfsrt.NewPoller(client, cfg.GTFSRT.FeedURL, notify)
	if mcol != nil {
		static.Observe = mcol.ObserveStaticLoad
		poller.Observe = mcol.ObserveRealtimePoll
	}

	ctrl = refresh.New(engine, static, poller, cfg.Board.ResolveStop(*stopID, *preset), cfg.RefreshInterval())
	if mcol != nil {
		ctrl.SetObserver(mcol)
	}

	if cfg.NATS.URL != "" {
		var pm publisher.PublisherMetrics
		if mcol != nil {
			pm = mcol
		}
		pub, err := publisher.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.Subject, cfg.NATS.LogSubjects, pm)
		if err != nil {
			log.Fatalf("nats error: %v", err)
		}
		defer pub.Close()
		ctrl.AddSink(pub)
	}

	go static.Run(ctx, cfg.StaticRefreshInterval())
	go poller.Run(ctx, cfg.ReadInterval())
	go func() {
		if err := ctrl.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("refresh controller stopped: %v", err)
		}
	}()

	h := &departures.Handlers{
		Board:      cfg.Board,
		Engine:     engine,
		Static:     static,
		Realtime:   poller,
		Controller: ctrl,
	}
	if mcol != nil {
		h.Metrics = mcol.Handler()
	}
	log.Printf("tracking stop %s (gtfs source: %s)", ctrl.StopID(), cfg.GTFS.Source)
	departures.StartServer(cfg.Server.Port, h)
	departures.HandleGracefulShutdown(cancel, extraServers...)
}

// staticSource builds the configured static GTFS source, wrapped in the
// gob cache when a cache path is set.
func staticSource(ctx context.Context, cfg config.AppConfig) (gtfs.Source, func(), error) {
	var src gtfs.Source
	closeFn := func() {}
	switch cfg.GTFS.Source {
	case "postgres":
		pg, err := gtfs.OpenPostgres(ctx, cfg.GTFS.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		src = pg
		closeFn = func() { _ = pg.Close() }
	case "zip":
		src = gtfs.NewZipFileSource(cfg.GTFS.ZipPath, time.Minute)
	default:
		src = gtfs.NewHTTPSource(cfg.GTFS.StaticURL, &http.Client{Timeout: 5 * time.Minute}, time.Minute)
	}
	if cfg.GTFS.CachePath != "" {
		src = &gtfs.CachedSource{Inner: src, Path: cfg.GTFS.CachePath}
	}
	return src, closeFn, nil
}
