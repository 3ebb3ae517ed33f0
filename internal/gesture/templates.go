package gesture

import "github.com/ayusman/mudra/internal/detector"

// Built-in template labels.
const (
	LabelThumbsUp = "thumbs_up"
	LabelOpenPalm = "open_palm"
)

// DefaultTolerance is the match tolerance given to built-in templates.
const DefaultTolerance = 2.0

// TemplateFromPose builds a template from raw (unnormalized) landmarks.
func TemplateFromPose(id, name string, hand detector.HandLandmarks, tolerance float64) *Template {
	n := hand.Normalize()
	return &Template{
		ID:        id,
		Name:      name,
		Landmarks: append([]detector.Point3D(nil), n.Points[:]...),
		Tolerance: tolerance,
	}
}

// DefaultTemplates returns the built-in thumbs up and open palm templates.
func DefaultTemplates() []*Template {
	return []*Template{
		TemplateFromPose("builtin-thumbs-up", LabelThumbsUp, detector.ThumbsUpPose(), DefaultTolerance),
		TemplateFromPose("builtin-open-palm", LabelOpenPalm, detector.OpenPalmPose(), DefaultTolerance),
	}
}
