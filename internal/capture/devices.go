package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/warekit/punchd/internal/model"
)

// ExecCamera drives an external capture command (e.g. fswebcam) that writes
// a PNG still to a file. The command is a template where {out} is replaced
// by the output path. Kiosks without a command can point FilePath at a
// pre-captured still instead.
type ExecCamera struct {
	Command  string
	FilePath string
}

type execStream struct {
	cam *ExecCamera
	dir string
}

func (c *ExecCamera) Start() (Stream, error) {
	if c.Command == "" && c.FilePath == "" {
		return nil, fmt.Errorf("no capture command or photo file configured")
	}
	if c.Command != "" {
		parts := strings.Fields(c.Command)
		if _, err := exec.LookPath(parts[0]); err != nil {
			return nil, fmt.Errorf("capture command %q: %w", parts[0], err)
		}
	}
	dir, err := os.MkdirTemp("", "punchd-capture-")
	if err != nil {
		return nil, fmt.Errorf("creating capture workdir: %w", err)
	}
	return &execStream{cam: c, dir: dir}, nil
}

func (s *execStream) Frame() ([]byte, error) {
	if s.dir == "" {
		return nil, fmt.Errorf("camera stream is stopped")
	}
	if s.cam.Command == "" {
		data, err := os.ReadFile(s.cam.FilePath)
		if err != nil {
			return nil, fmt.Errorf("reading photo file: %w", err)
		}
		return data, nil
	}

	out := filepath.Join(s.dir, "still.png")
	parts := strings.Fields(strings.ReplaceAll(s.cam.Command, "{out}", out))
	cmd := exec.Command(parts[0], parts[1:]...)
	if msg, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("capture command failed: %v: %s", err, bytes.TrimSpace(msg))
	}
	data, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("reading captured still: %w", err)
	}
	return data, nil
}

func (s *execStream) Stop() {
	if s.dir != "" {
		_ = os.RemoveAll(s.dir)
		s.dir = ""
	}
}

// HTTPFaceDetector posts the still to a detection service and reads back
// {"face_found": bool}. It is wired only when the endpoint is configured;
// the session treats transport failures as "check could not run".
type HTTPFaceDetector struct {
	Endpoint string
	Client   *http.Client
}

func (d *HTTPFaceDetector) Detect(ctx context.Context, png []byte) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.Endpoint, bytes.NewReader(png))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "image/png")

	hc := d.Client
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return false, fmt.Errorf("face detection request: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return false, fmt.Errorf("reading detection response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("face detection error %d: %s", resp.StatusCode, string(body))
	}
	var out struct {
		FaceFound bool `json:"face_found"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return false, fmt.Errorf("decoding detection response: %w", err)
	}
	return out.FaceFound, nil
}

// StaticLocator reports a fixed kiosk position from configuration.
type StaticLocator struct {
	Fix model.Location
}

func (l *StaticLocator) Locate(ctx context.Context) (model.Location, error) {
	return l.Fix, nil
}

// HTTPGeocoder reverse-geocodes coordinates through a lookup service that
// answers {"address": "..."}.
type HTTPGeocoder struct {
	Endpoint string
	Client   *http.Client
}

func (g *HTTPGeocoder) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	url := fmt.Sprintf("%s?lat=%f&lon=%f", g.Endpoint, lat, lon)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	hc := g.Client
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("geocode request: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return "", fmt.Errorf("reading geocode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geocode error %d: %s", resp.StatusCode, string(body))
	}
	var out struct {
		Address string `json:"address"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decoding geocode response: %w", err)
	}
	return out.Address, nil
}
