package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/warekit/punchd/internal/capture"
	"github.com/warekit/punchd/internal/config"
	"github.com/warekit/punchd/internal/model"
	"github.com/warekit/punchd/internal/queue"
	"github.com/warekit/punchd/internal/remote"
	"github.com/warekit/punchd/internal/submit"
	"github.com/warekit/punchd/internal/sweep"
)

// app bundles the configured services a command needs. Commands construct
// it once; nothing here is global state beyond cobra's own wiring.
type app struct {
	cfg   config.Config
	queue *queue.Queue
	store *remote.Client
}

// newApp loads configuration, opens the local queue and builds the backend
// client. When an identity provider is configured the client authenticates
// (device code flow on first use); otherwise it talks plain HTTP, which
// also serves local development backends.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.Backend.BaseURL == "" {
		return nil, fmt.Errorf("backend base_url is not configured (edit ~/.punchd/config.json or set PUNCHD_BASE_URL)")
	}
	if cfg.Subject.ID == "" {
		return nil, fmt.Errorf("subject id is not configured (edit ~/.punchd/config.json or set PUNCHD_SUBJECT_ID)")
	}

	base, err := config.BaseDir()
	if err != nil {
		return nil, err
	}
	q, err := queue.Open(base)
	if err != nil {
		return nil, fmt.Errorf("opening local queue: %w", err)
	}

	var store *remote.Client
	if cfg.Backend.AuthURL != "" {
		tok, ocfg, err := remote.Authenticate(ctx, cfg.Backend.AuthURL, cfg.Backend.TenantID, cfg.Backend.ClientID)
		if err != nil {
			return nil, fmt.Errorf("authentication failed: %w", err)
		}
		store = remote.NewClient(ctx, cfg.Backend.BaseURL, tok, ocfg)
	} else {
		store = remote.NewUnauthenticated(cfg.Backend.BaseURL, nil)
	}

	return &app{cfg: cfg, queue: q, store: store}, nil
}

func (a *app) close() {
	if a.queue != nil {
		_ = a.queue.Close()
	}
}

func (a *app) pipeline() *submit.Pipeline {
	return &submit.Pipeline{Remote: a.store, Queue: a.queue, SubjectID: a.cfg.Subject.ID}
}

func (a *app) sweeper() *sweep.Sweeper {
	return &sweep.Sweeper{Queue: a.queue, Remote: a.store, SubjectID: a.cfg.Subject.ID}
}

// session builds a capture session from the configured hardware seams.
func (a *app) session(photoOverride string) *capture.Session {
	cam := &capture.ExecCamera{Command: a.cfg.Capture.Command, FilePath: a.cfg.Capture.PhotoFile}
	if photoOverride != "" {
		cam.Command = ""
		cam.FilePath = photoOverride
	}

	s := &capture.Session{
		Camera: cam,
		Online: a.store.Online,
	}
	if a.cfg.Capture.FaceDetectURL != "" {
		s.Faces = &capture.HTTPFaceDetector{Endpoint: a.cfg.Capture.FaceDetectURL}
	}
	if a.cfg.Capture.Latitude != 0 || a.cfg.Capture.Longitude != 0 {
		s.Locator = &capture.StaticLocator{Fix: model.Location{
			Latitude:  a.cfg.Capture.Latitude,
			Longitude: a.cfg.Capture.Longitude,
		}}
	}
	if a.cfg.Capture.GeocodeURL != "" {
		s.Geocoder = &capture.HTTPGeocoder{Endpoint: a.cfg.Capture.GeocodeURL, Client: http.DefaultClient}
	}
	return s
}

// fail prints the error and exits: 1 for user errors, 2 for storage and
// backend failures.
func fail(code int, err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(code)
}
