// Command api serves the assembled channel feed over HTTP, refreshing it on
// a TTL in the background. NATS, Neo4j, and Qdrant sinks are optional and
// enabled by configuration.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	ossignal "os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/signalreel/signalreel/engine/archive"
	"github.com/signalreel/signalreel/engine/feed"
	"github.com/signalreel/signalreel/engine/graph"
	"github.com/signalreel/signalreel/engine/report"
	"github.com/signalreel/signalreel/engine/signal"
	"github.com/signalreel/signalreel/engine/transcript"
	"github.com/signalreel/signalreel/pkg/classifier"
	"github.com/signalreel/signalreel/pkg/embed"
	"github.com/signalreel/signalreel/pkg/metrics"
	"github.com/signalreel/signalreel/pkg/mid"
	"github.com/signalreel/signalreel/pkg/natsutil"
)

// Config holds all environment-based configuration. Optional integrations
// stay disabled while their URL is empty.
type Config struct {
	Port          string
	RefreshTTL    time.Duration
	ChannelsFile  string
	ClassifierURL string
	NATSURL       string
	Neo4jURL      string
	Neo4jUser     string
	Neo4jPass     string
	QdrantURL     string
	Collection    string
	OllamaURL     string
	EmbedModel    string
	CORSOrigin    string
}

func loadConfig() (Config, error) {
	ttl, err := time.ParseDuration(envOr("REFRESH_TTL", "1h"))
	if err != nil {
		return Config{}, fmt.Errorf("parse REFRESH_TTL: %w", err)
	}
	return Config{
		Port:          envOr("PORT", "8080"),
		RefreshTTL:    ttl,
		ChannelsFile:  os.Getenv("CHANNELS_FILE"),
		ClassifierURL: os.Getenv("CLASSIFIER_URL"),
		NATSURL:       os.Getenv("NATS_URL"),
		Neo4jURL:      os.Getenv("NEO4J_URL"),
		Neo4jUser:     envOr("NEO4J_USER", "neo4j"),
		Neo4jPass:     envOr("NEO4J_PASS", "password"),
		QdrantURL:     os.Getenv("QDRANT_URL"),
		Collection:    envOr("QDRANT_COLLECTION", "signalreel"),
		OllamaURL:     envOr("OLLAMA_URL", "http://localhost:11434"),
		EmbedModel:    envOr("EMBED_MODEL", "nomic-embed-text"),
		CORSOrigin:    envOr("CORS_ORIGIN", "*"),
	}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := loadConfig()
	if err != nil {
		logger.Error("bad configuration", "err", err)
		os.Exit(1)
	}
	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := ossignal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	channels := feed.DefaultChannels
	if cfg.ChannelsFile != "" {
		data, err := os.ReadFile(cfg.ChannelsFile)
		if err != nil {
			return fmt.Errorf("read channels file: %w", err)
		}
		channels = nil
		if err := json.Unmarshal(data, &channels); err != nil {
			return fmt.Errorf("parse channels file: %w", err)
		}
	}

	chain, err := transcript.NewChain(logger,
		transcript.NewInnertubeSource(nil, nil),
		transcript.NewWatchPageSource(nil, nil),
	)
	if err != nil {
		return err
	}

	vocab := signal.DefaultVocabulary()
	var labeler signal.Labeler = signal.NewKeywordLabeler(vocab)
	if cfg.ClassifierURL != "" {
		labeler = signal.NewClassifierLabeler(
			classifier.NewClient(cfg.ClassifierURL, nil),
			signal.NewKeywordLabeler(vocab),
			logger,
		)
	}

	asm, err := report.New(report.Config{
		Channels:    channels,
		Resolver:    feed.NewResolver(nil),
		Transcripts: chain,
		Extractor:   signal.NewExtractor(vocab),
		Labeler:     labeler,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	srv := &server{
		asm:      asm,
		channels: channels,
		reg:      metrics.New(),
		log:      logger,
	}

	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Close()
		srv.nats = nc
		logger.Info("nats sink enabled", "url", cfg.NATSURL)
	}

	if cfg.Neo4jURL != "" {
		driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURL, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
		if err != nil {
			return fmt.Errorf("neo4j driver: %w", err)
		}
		defer driver.Close(ctx)
		srv.graph = graph.New(driver)
		logger.Info("graph sink enabled", "url", cfg.Neo4jURL)
	}

	if cfg.QdrantURL != "" {
		store, err := archive.New(cfg.QdrantURL, cfg.Collection)
		if err != nil {
			return fmt.Errorf("qdrant connect: %w", err)
		}
		defer store.Close()
		srv.archive = store
		srv.embedder = embed.NewClient(cfg.OllamaURL, cfg.EmbedModel, nil)
		logger.Info("archive sink enabled", "url", cfg.QdrantURL, "collection", cfg.Collection)
	}

	// First pass in the background so the server comes up immediately.
	go srv.refresh(ctx)
	go srv.refreshLoop(ctx, cfg.RefreshTTL)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/feed", srv.handleFeed)
	mux.HandleFunc("GET /api/assets", srv.handleAssets)
	mux.HandleFunc("POST /api/refresh", srv.handleRefresh)
	mux.HandleFunc("GET /api/health", srv.handleHealth)
	mux.Handle("GET /metrics", srv.reg.Handler())

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("signalreel-api"),
	)

	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port, "refresh_ttl", cfg.RefreshTTL)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutCtx)
}

// server owns the cached batch and the optional sinks.
type server struct {
	asm      *report.Assembler
	channels []feed.Channel
	reg      *metrics.Registry
	log      *slog.Logger

	nats     *nats.Conn
	graph    *graph.MentionGraph
	archive  *archive.Store
	embedder *embed.Client

	mu         sync.RWMutex
	batch      *report.Batch
	refreshing sync.Mutex
	ensured    bool
}

func (s *server) refreshLoop(ctx context.Context, ttl time.Duration) {
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

// refresh runs one pass and replaces the cached batch. Concurrent triggers
// serialize behind the refreshing mutex; each runs its own full pass.
func (s *server) refresh(ctx context.Context) {
	s.refreshing.Lock()
	defer s.refreshing.Unlock()

	start := time.Now()
	batch := s.asm.Run(ctx)

	s.mu.Lock()
	s.batch = &batch
	s.mu.Unlock()

	errs := int64(0)
	for _, r := range batch.Rows {
		if r.Error != "" {
			errs++
		}
	}
	s.reg.Counter("signalreel_passes_total", "Completed pipeline passes").Inc()
	s.reg.Counter("signalreel_rows_total", "Rows assembled").Add(int64(len(batch.Rows)))
	s.reg.Counter("signalreel_row_errors_total", "Rows assembled in error state").Add(errs)
	s.reg.Histogram("signalreel_pass_duration_seconds", "Pipeline pass latency", nil).Since(start)
	s.log.Info("pass complete", "rows", len(batch.Rows), "errors", errs, "duration", time.Since(start))

	s.publishBatch(ctx, batch)
	s.recordMentions(ctx, batch)
	s.archiveSummaries(ctx, batch)
}

func (s *server) publishBatch(ctx context.Context, batch report.Batch) {
	if s.nats == nil {
		return
	}
	if err := natsutil.Publish(ctx, s.nats, natsutil.SubjectBatch, batch); err != nil {
		s.log.Warn("nats publish failed", "error", err)
	}
}

func (s *server) recordMentions(ctx context.Context, batch report.Batch) {
	if s.graph == nil {
		return
	}
	var mentions []graph.Mention
	for i, row := range batch.Rows {
		if i >= len(s.channels) || row.Error != "" || row.VideoID == "" {
			continue
		}
		mentions = append(mentions, graph.Mention{
			ChannelID:   s.channels[i].ID,
			ChannelName: s.channels[i].Name,
			VideoID:     row.VideoID,
			Title:       row.VideoTitle,
			Published:   row.Published,
			URL:         row.URL,
			Sentiment:   plainSentiment(row.Sentiment),
			Tickers:     row.Entities.Tickers,
			Macro:       row.Entities.Macro,
		})
	}
	if err := s.graph.RecordBatch(ctx, mentions); err != nil {
		s.log.Warn("graph record failed", "error", err)
	}
}

func (s *server) archiveSummaries(ctx context.Context, batch report.Batch) {
	if s.archive == nil {
		return
	}
	var entries []archive.Entry
	for _, row := range batch.Rows {
		if row.Error != "" || row.VideoID == "" || row.Summary == "" || row.Summary == "Transcript unavailable." {
			continue
		}
		vec, err := s.embedder.Embed(ctx, row.Summary)
		if err != nil {
			s.log.Warn("embed failed", "video_id", row.VideoID, "error", err)
			continue
		}
		entries = append(entries, archive.Entry{
			VideoID:   row.VideoID,
			Channel:   row.Name,
			Title:     row.VideoTitle,
			Published: row.Published,
			Summary:   row.Summary,
			Sentiment: plainSentiment(row.Sentiment),
			Vector:    vec,
		})
	}
	if len(entries) == 0 {
		return
	}
	if !s.ensured {
		if err := s.archive.EnsureCollection(ctx, len(entries[0].Vector)); err != nil {
			s.log.Warn("ensure collection failed", "error", err)
			return
		}
		s.ensured = true
	}
	if err := s.archive.Upsert(ctx, entries); err != nil {
		s.log.Warn("archive upsert failed", "error", err)
	}
}

// plainSentiment strips the emoji prefix off a display label.
func plainSentiment(display string) string {
	if i := strings.LastIndexByte(display, ' '); i >= 0 {
		return strings.ToLower(display[i+1:])
	}
	return strings.ToLower(display)
}

func (s *server) handleFeed(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	batch := s.batch
	s.mu.RUnlock()

	if batch == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"error": "first pass not finished yet"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(batch)
}

// handleAssets returns the asset symbols a channel's recorded videos have
// mentioned. Requires the graph sink.
func (s *server) handleAssets(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.graph == nil {
		w.WriteHeader(http.StatusNotImplemented)
		json.NewEncoder(w).Encode(map[string]string{"error": "graph sink not configured"})
		return
	}
	channelID := r.URL.Query().Get("channel")
	if channelID == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "channel query parameter is required"})
		return
	}
	symbols, err := s.graph.AssetsForChannel(r.Context(), channelID)
	if err != nil {
		s.log.Warn("asset query failed", "channel", channelID, "error", err)
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]string{"error": "graph query failed"})
		return
	}
	if symbols == nil {
		symbols = []string{}
	}
	json.NewEncoder(w).Encode(map[string]any{"channel": channelID, "assets": symbols})
}

func (s *server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.refresh(r.Context())

	s.mu.RLock()
	batch := s.batch
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":       "ok",
		"rows":         len(batch.Rows),
		"last_updated": batch.LastUpdated,
	})
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
