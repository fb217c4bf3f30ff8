package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/warekit/punchd/internal/capture"
	"github.com/warekit/punchd/internal/model"
	"github.com/warekit/punchd/internal/submit"
)

var (
	punchNote     string
	punchLocation bool
	punchPhoto    string
)

var punchCmd = &cobra.Command{
	Use:   "punch <clock-in|break-in|break-out|clock-out>",
	Short: "Capture and submit a punch",
	Args:  cobra.ExactArgs(1),
	RunE:  runPunch,
}

func init() {
	punchCmd.Flags().StringVar(&punchNote, "note", "", "Optional note attached to the punch")
	punchCmd.Flags().BoolVar(&punchLocation, "location", false, "Attach the kiosk location to this punch")
	punchCmd.Flags().StringVar(&punchPhoto, "photo", "", "Use this image file instead of the camera")
}

func runPunch(cmd *cobra.Command, args []string) error {
	kind, err := model.ParsePunchKind(args[0])
	if err != nil {
		fail(1, err)
	}

	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		fail(2, err)
	}
	defer a.close()

	pipeline := a.pipeline()
	if err := pipeline.Gate(ctx, kind); err != nil {
		fail(1, err)
	}

	session := a.session(punchPhoto)
	defer session.Close()

	if err := session.Start(); err != nil {
		fail(1, err)
	}
	if err := session.TakePhoto(); err != nil {
		fail(1, err)
	}

	if punchLocation {
		if loc, err := session.AttachLocation(ctx); err != nil {
			// Location failures are recoverable; the punch proceeds.
			fmt.Fprintf(os.Stderr, "Warning: %v, continuing without location\n", err)
		} else {
			fmt.Printf("Location: %s\n", loc)
		}
	}

	rec, err := session.Finalize(ctx, kind, punchNote)
	if errors.Is(err, capture.ErrNoFaceDetected) {
		fail(1, fmt.Errorf("no face detected in the photo; retake and try again"))
	}
	if err != nil {
		fail(1, err)
	}

	outcome := pipeline.Submit(ctx, rec)
	switch outcome.State {
	case submit.Committed:
		fmt.Printf("✓ %s recorded at %s\n", kind, rec.CapturedAt.Format("03:04 PM"))
	case submit.Queued:
		fmt.Printf("– %s saved offline (%s); it will sync when connectivity returns\n", kind, outcome.LocalID)
	case submit.Failed:
		fail(2, fmt.Errorf("could not store punch anywhere, capture lost unless retried: %w", outcome.Err))
	}
	return nil
}
