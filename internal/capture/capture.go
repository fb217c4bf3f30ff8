// Package capture orchestrates acquiring a punch photo, an optional
// geolocation fix and an optional face-presence check, producing an
// immutable capture record for the submission pipeline. Hardware access
// sits behind small interfaces so kiosks can plug in whatever camera or
// positioning source they have and tests can use fakes.
package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/warekit/punchd/internal/model"
)

var (
	// ErrCameraUnavailable means the device denied or lacks camera access.
	// A session cannot proceed without a photo.
	ErrCameraUnavailable = errors.New("camera unavailable")

	// ErrNoFaceDetected is a soft rejection: the presence check ran and
	// found no face. The session stays alive so the user can retake.
	ErrNoFaceDetected = errors.New("no face detected")

	// ErrNoPhoto means Finalize was called before a photo was taken.
	ErrNoPhoto = errors.New("no photo taken")

	// ErrConsumed means the session already produced its capture record.
	ErrConsumed = errors.New("capture session already finalized")
)

// LocationError is a recoverable geolocation failure; the session proceeds
// without a location.
type LocationError struct {
	Kind string // "denied", "unavailable" or "timeout"
	Err  error
}

func (e *LocationError) Error() string {
	return fmt.Sprintf("location %s: %v", e.Kind, e.Err)
}

func (e *LocationError) Unwrap() error { return e.Err }

// Camera starts the device video stream.
type Camera interface {
	Start() (Stream, error)
}

// Stream is a running camera feed. Stop releases the underlying device and
// must be called on every exit path, not only the success path.
type Stream interface {
	Frame() ([]byte, error)
	Stop()
}

// FaceDetector reports whether a face is present in a PNG still.
type FaceDetector interface {
	Detect(ctx context.Context, png []byte) (bool, error)
}

// Locator acquires a device position fix.
type Locator interface {
	Locate(ctx context.Context) (model.Location, error)
}

// Geocoder resolves coordinates into a human-readable address.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (string, error)
}

const (
	locationTimeout = 10 * time.Second
	geocodeTimeout  = 5 * time.Second
	fixMaxAge       = 5 * time.Minute
)

// Session is one capture flow: start camera, take (or retake) a photo,
// optionally attach a location, finalize into a CaptureRecord. A session is
// single-use; Finalize consumes it.
type Session struct {
	Camera   Camera
	Faces    FaceDetector // nil when detection assets are not available
	Locator  Locator      // nil when the kiosk has no positioning source
	Geocoder Geocoder
	Online   func(context.Context) bool
	Now      func() time.Time

	stream    Stream
	photo     []byte
	location  *model.Location
	lastFix   model.Location
	lastFixAt time.Time
	finalized bool
}

func (s *Session) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Session) online(ctx context.Context) bool {
	return s.Online != nil && s.Online(ctx)
}

// Start acquires the camera stream.
func (s *Session) Start() error {
	if s.stream != nil {
		return nil
	}
	stream, err := s.Camera.Start()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCameraUnavailable, err)
	}
	s.stream = stream
	return nil
}

// TakePhoto grabs a still from the running stream.
func (s *Session) TakePhoto() error {
	if s.finalized {
		return ErrConsumed
	}
	if s.stream == nil {
		if err := s.Start(); err != nil {
			return err
		}
	}
	frame, err := s.stream.Frame()
	if err != nil {
		return fmt.Errorf("taking photo: %w", err)
	}
	s.photo = frame
	return nil
}

// Retake discards the current still. The stream keeps running so the next
// TakePhoto is immediate.
func (s *Session) Retake() {
	s.photo = nil
}

// AttachLocation opts this session into geolocation. A cached fix younger
// than five minutes is reused; otherwise acquisition waits at most ten
// seconds. Reverse geocoding is attempted only when online, with its own
// short timeout, and failure degrades to coordinates-only. All failures are
// recoverable: the session simply proceeds without a location.
func (s *Session) AttachLocation(ctx context.Context) (*model.Location, error) {
	if s.Locator == nil {
		return nil, &LocationError{Kind: "unavailable", Err: errors.New("no positioning source configured")}
	}

	fix := s.lastFix
	if s.lastFixAt.IsZero() || s.now().Sub(s.lastFixAt) > fixMaxAge {
		locCtx, cancel := context.WithTimeout(ctx, locationTimeout)
		defer cancel()
		got, err := s.Locator.Locate(locCtx)
		if err != nil {
			kind := "unavailable"
			if errors.Is(err, context.DeadlineExceeded) {
				kind = "timeout"
			}
			return nil, &LocationError{Kind: kind, Err: err}
		}
		fix = got
		s.lastFix = got
		s.lastFixAt = s.now()
	}

	if fix.Address == "" && s.Geocoder != nil && s.online(ctx) {
		geoCtx, cancel := context.WithTimeout(ctx, geocodeTimeout)
		addr, err := s.Geocoder.Reverse(geoCtx, fix.Latitude, fix.Longitude)
		cancel()
		if err == nil {
			fix.Address = addr
		}
	}

	s.location = &fix
	return s.location, nil
}

// Finalize runs the soft face-presence gate and produces the capture
// record. The check runs only when the device is online and a detector is
// configured; a detector failure never blocks submission, but a definitive
// no-face result returns ErrNoFaceDetected and keeps the session alive for
// a retake. On success the camera stream is released and the session is
// consumed.
func (s *Session) Finalize(ctx context.Context, kind model.PunchKind, note string) (model.CaptureRecord, error) {
	if s.finalized {
		return model.CaptureRecord{}, ErrConsumed
	}
	if len(s.photo) == 0 {
		return model.CaptureRecord{}, ErrNoPhoto
	}

	if s.Faces != nil && s.online(ctx) {
		found, err := s.Faces.Detect(ctx, s.photo)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: face check unavailable (%v), proceeding\n", err)
		} else if !found {
			return model.CaptureRecord{}, ErrNoFaceDetected
		}
	}

	rec := model.CaptureRecord{
		Image:      s.photo,
		CapturedAt: s.now(),
		Location:   s.location,
		Kind:       kind,
		Note:       note,
	}
	s.finalized = true
	s.Close()
	return rec, nil
}

// Close releases the camera stream. Safe to call on every exit path and
// more than once.
func (s *Session) Close() {
	if s.stream != nil {
		s.stream.Stop()
		s.stream = nil
	}
}
