package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/segment"
	"github.com/ayusman/mudra/internal/store"
)

// SegmenterOpener acquires a segmentation engine.
type SegmenterOpener func(ctx context.Context) (segment.Engine, error)

// GestureOpener acquires a gesture engine.
type GestureOpener func(ctx context.Context) (gesture.Engine, error)

// DNNSegmenter opens an OpenCV DNN segmentation model.
func DNNSegmenter(config segment.Config) SegmenterOpener {
	return func(ctx context.Context) (segment.Engine, error) {
		e, err := segment.Open(ctx, config)
		if err != nil {
			return nil, err
		}
		return e, nil
	}
}

// LandmarkGestures starts the MediaPipe landmark service and matches hands
// against the templates stored in st. A nil store uses the built-in
// templates only.
func LandmarkGestures(config detector.Config, st *store.Store, log *logrus.Entry) GestureOpener {
	return func(ctx context.Context) (gesture.Engine, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		matcher := gesture.NewStaticMatcher()
		if st != nil {
			templates, err := LoadTemplates(st.Templates())
			if err != nil {
				return nil, fmt.Errorf("load templates: %w", err)
			}
			matcher.SetTemplates(templates)
		} else {
			matcher.SetTemplates(gesture.DefaultTemplates())
		}
		if log != nil {
			log.WithField("templates", matcher.Len()).Info("Gesture templates loaded")
		}

		d, err := detector.NewMediaPipeDetector(config)
		if err != nil {
			return nil, err
		}
		return gesture.NewLandmarkEngine(d, matcher), nil
	}
}

// SeedTemplates stores the built-in templates when none exist yet.
func SeedTemplates(repo *store.TemplateRepository) (int, error) {
	defaults := gesture.DefaultTemplates()
	records := make([]store.Template, len(defaults))
	for i, t := range defaults {
		records[i] = store.Template{
			Name:      t.Name,
			Tolerance: t.Tolerance,
			Landmarks: make([]store.Landmark, len(t.Landmarks)),
		}
		for j, p := range t.Landmarks {
			records[i].Landmarks[j] = store.Landmark{X: p.X, Y: p.Y, Z: p.Z}
		}
	}
	return repo.Seed(records)
}

// LoadTemplates reads stored templates as matcher templates. Templates
// without landmarks are skipped.
func LoadTemplates(repo *store.TemplateRepository) ([]*gesture.Template, error) {
	records, err := repo.List()
	if err != nil {
		return nil, err
	}

	templates := make([]*gesture.Template, 0, len(records))
	for _, r := range records {
		if len(r.Landmarks) == 0 {
			continue
		}
		points := make([]detector.Point3D, len(r.Landmarks))
		for i, l := range r.Landmarks {
			points[i] = detector.Point3D{X: l.X, Y: l.Y, Z: l.Z}
		}
		templates = append(templates, &gesture.Template{
			ID:        r.ID,
			Name:      r.Name,
			Landmarks: points,
			Tolerance: r.Tolerance,
		})
	}
	return templates, nil
}
