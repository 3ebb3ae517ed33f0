package app

import (
	"path/filepath"
	"testing"

	"github.com/ayusman/mudra/internal/composite"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Options)
		wantErr bool
	}{
		{"defaults", func(*Options) {}, false},
		{"single mode", func(o *Options) { o.Mode = composite.ModeSingle }, false},
		{"zero decimation", func(o *Options) { o.Decimation = 0 }, true},
		{"zero refresh rate", func(o *Options) { o.RefreshRate = 0 }, true},
		{"negative decor", func(o *Options) { o.Decor = -1 }, true},
		{"unknown mode", func(o *Options) { o.Mode = "triple" }, true},
		{"unknown rule", func(o *Options) { o.Policy.Rule = "fuzzy" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := DefaultOptions()
			tt.modify(&o)
			if err := o.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOptions_ModeOverridesPolicy(t *testing.T) {
	o := DefaultOptions()
	o.Mode = composite.ModeSingle
	o.Policy.Mode = composite.ModeDual

	if got := o.compositePolicy().Mode; got != composite.ModeSingle {
		t.Errorf("policy mode = %q, want single", got)
	}
}

func TestSeedAndLoadTemplates(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer st.Close()

	n, err := SeedTemplates(st.Templates())
	if err != nil || n != 2 {
		t.Fatalf("SeedTemplates() = %d, %v, want 2, nil", n, err)
	}

	// Templates without landmarks cannot match and are skipped.
	if err := st.Templates().Create(&store.Template{Name: "empty"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	templates, err := LoadTemplates(st.Templates())
	if err != nil {
		t.Fatalf("LoadTemplates() error = %v", err)
	}
	if len(templates) != 2 {
		t.Fatalf("loaded %d templates, want 2", len(templates))
	}
	for _, tmpl := range templates {
		if len(tmpl.Landmarks) != detector.NumLandmarks {
			t.Errorf("template %s has %d landmarks, want %d", tmpl.Name, len(tmpl.Landmarks), detector.NumLandmarks)
		}
	}

	matcher := gesture.NewStaticMatcher()
	matcher.SetTemplates(templates)
	matches := matcher.Match(detector.OpenPalmPose())
	if len(matches) == 0 || matches[0].Template.Name != gesture.LabelOpenPalm {
		t.Errorf("stored templates do not rank open palm first: %v", matches)
	}
}
