// Package engine wires every Sonar subsystem into one value — the
// connection pool, blob store, capability registry, and all service
// layers — so the RPC, OpenSubsonic, and admin web surfaces share a
// single set of dependencies instead of constructing their own.
package engine

import (
	"context"
	"log"
	"time"

	"sonar/internal/audio"
	"sonar/internal/auth"
	"sonar/internal/blob"
	"sonar/internal/capability"
	"sonar/internal/catalog"
	"sonar/internal/config"
	"sonar/internal/database"
	"sonar/internal/image"
	"sonar/internal/importpipeline"
	"sonar/internal/lyrics"
	"sonar/internal/metadata"
	"sonar/internal/playlist"
	"sonar/internal/scrobble"
	"sonar/internal/search"
	"sonar/internal/social"
	"sonar/internal/subscription"
)

// Engine is the process's single instance of global state: every
// request-handling surface (native RPC, OpenSubsonic, admin web) reads
// from this struct rather than holding its own copies.
type Engine struct {
	Config *config.Config
	DB     *database.DB

	Catalog  *catalog.Catalog
	Blobs    *blob.Store
	Auth     *auth.Service
	Image    *image.Service
	Audio    *audio.Service
	Lyrics   *lyrics.Service
	Playlist *playlist.Service
	Social   *social.Service
	Scrobble *scrobble.Service
	Sub      *subscription.Service
	Search   *search.Service
	Metadata *metadata.Registry
	Import   *importpipeline.Pipeline
}

// subscriptionSubmitter is the subscription package's Submitter. No
// acquisition backend exists, so it logs every due subscription (of any
// media_type) as having none and returns nil, which the scheduler records
// as a successful submission. It does not call any Scrobbler.
type subscriptionSubmitter struct {
	cat *catalog.Catalog
}

func (s *subscriptionSubmitter) Submit(ctx context.Context, sub *catalog.Subscription) error {
	log.Printf("subscription %d (%s): no acquisition backend configured, marking attempted", sub.ID, sub.MediaType)
	return nil
}

// New constructs the engine from configuration: opens the database
// (running migrations), opens the blob store, and wires every service
// layer together. The tag and audio extractors are constructed here;
// metadata providers and scrobblers are not, and are added by the caller
// via RegisterMetadataProvider/RegisterScrobbler after New returns.
func New(cfg *config.Config) (*Engine, error) {
	db, err := database.Open(cfg.DatabaseURL, cfg.DBPoolSize)
	if err != nil {
		return nil, err
	}

	blobs, err := blob.New(cfg.DataDir + "/blobs")
	if err != nil {
		return nil, err
	}

	cat := catalog.New(db.DB)
	authSvc := auth.New(db.DB, cat, cfg.JWTSecret)
	imageSvc := image.New(blobs, cat)

	tagEx := capability.NewDhowdenTagExtractor()
	audioEx := capability.NewFormatAudioExtractor()
	audioSvc := audio.New(blobs, cat, audioEx)
	importer := importpipeline.New(blobs, cat, db.DB, tagEx, audioEx)

	e := &Engine{
		Config:   cfg,
		DB:       db,
		Catalog:  cat,
		Blobs:    blobs,
		Auth:     authSvc,
		Image:    imageSvc,
		Audio:    audioSvc,
		Lyrics:   lyrics.New(cat),
		Playlist: playlist.New(cat),
		Social:   social.New(cat),
		Scrobble: scrobble.New(cat),
		Sub:      subscription.New(cat, &subscriptionSubmitter{cat: cat}),
		Search:   search.New(cat),
		Metadata: metadata.NewRegistry(cat, imageSvc),
		Import:   importer,
	}

	if cfg.DefaultAdminUsername != "" && cfg.DefaultAdminPassword != "" {
		if err := e.ensureDefaultAdmin(); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// ensureDefaultAdmin creates the configured admin user only if no user
// exists yet, per spec §6's first-boot bootstrap.
func (e *Engine) ensureDefaultAdmin() error {
	var count int
	if err := e.DB.DB.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	_, err := e.Auth.Register(e.Config.DefaultAdminUsername, e.Config.DefaultAdminPassword, true)
	if err != nil {
		return err
	}
	log.Printf("engine: created default admin user %q", e.Config.DefaultAdminUsername)
	return nil
}

// RegisterMetadataProvider adds an enrichment provider to the registry
// consulted by MetadataFetch/MetadataAlbumTracks.
func (e *Engine) RegisterMetadataProvider(p capability.MetadataProvider) {
	e.Metadata.Register(p)
}

// RegisterScrobbler sets the external scrobblers the Scrobble Service fans
// listens out to. scrobble.Service holds its scrobbler list immutably
// after construction, so this replaces the engine's Scrobble service with
// one holding exactly the given scrobblers; scrobblers passed to earlier
// calls are not kept.
func (e *Engine) RegisterScrobbler(scrobblers ...capability.Scrobbler) {
	e.Scrobble = scrobble.New(e.Catalog, scrobblers...)
}

// RunScheduler starts the subscription scheduler as a long-lived
// goroutine, per spec §5's single background scrobble-scheduler task.
func (e *Engine) RunScheduler(ctx context.Context) {
	interval := e.Config.SchedulerInterval
	if interval <= 0 {
		interval = 60 * time.Second
	}
	go e.Sub.RunScheduler(ctx, interval)
}

func (e *Engine) Close() error {
	return e.DB.Close()
}
