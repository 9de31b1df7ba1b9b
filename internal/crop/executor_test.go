package crop

import (
	"context"
	"errors"
	"testing"

	"github.com/lehigh-university-libraries/cardscan/internal/device"
	"github.com/lehigh-university-libraries/cardscan/internal/geometry"
	"github.com/lehigh-university-libraries/cardscan/internal/models"
)

type fakeCropper struct {
	out string
	err error
	box models.BoundingBox
}

func (f *fakeCropper) Crop(ctx context.Context, src string, box models.BoundingBox) (string, error) {
	f.box = box
	return f.out, f.err
}

type fakeGallery struct {
	granted bool
	created []device.Asset
	deleted []device.Asset
}

func (g *fakeGallery) RequestWritePermission(ctx context.Context) (bool, error) {
	return g.granted, nil
}

func (g *fakeGallery) CreateTempAsset(ctx context.Context, uri string) (device.Asset, error) {
	a := device.Asset{ID: "tmp-1", URI: "tmp://" + uri}
	g.created = append(g.created, a)
	return a, nil
}

func (g *fakeGallery) DeleteAsset(ctx context.Context, asset device.Asset) error {
	g.deleted = append(g.deleted, asset)
	return nil
}

type fakeEditor struct {
	out    string
	err    error
	panics bool
	aspect geometry.Aspect
}

func (e *fakeEditor) Edit(ctx context.Context, uri string, aspect geometry.Aspect) (string, error) {
	e.aspect = aspect
	if e.panics {
		panic("editor crashed")
	}
	return e.out, e.err
}

func TestAutoCrop(t *testing.T) {
	box := models.BoundingBox{X1: 1, Y1: 2, X2: 3, Y2: 4}

	t.Run("returns crop", func(t *testing.T) {
		c := &fakeCropper{out: "cropped.jpg"}
		e := NewExecutor(c, nil, nil)
		if got := e.AutoCrop(context.Background(), "orig.jpg", box); got != "cropped.jpg" {
			t.Errorf("AutoCrop = %q, want cropped.jpg", got)
		}
		if c.box != box {
			t.Errorf("cropper got box %+v, want %+v", c.box, box)
		}
	})

	t.Run("falls back to original on error", func(t *testing.T) {
		e := NewExecutor(&fakeCropper{err: errors.New("boom")}, nil, nil)
		if got := e.AutoCrop(context.Background(), "orig.jpg", box); got != "orig.jpg" {
			t.Errorf("AutoCrop = %q, want orig.jpg", got)
		}
	})

	t.Run("falls back without cropper", func(t *testing.T) {
		e := NewExecutor(nil, nil, nil)
		if got := e.AutoCrop(context.Background(), "orig.jpg", box); got != "orig.jpg" {
			t.Errorf("AutoCrop = %q, want orig.jpg", got)
		}
	})
}

func TestManualCrop(t *testing.T) {
	tests := []struct {
		name      string
		granted   bool
		editor    *fakeEditor
		want      string
		wantErr   error
		anyErr    bool
		wantAsset bool
	}{
		{
			name:      "success adopts edited image",
			granted:   true,
			editor:    &fakeEditor{out: "edited.jpg"},
			want:      "edited.jpg",
			wantAsset: true,
		},
		{
			name:    "permission denied keeps previous image",
			granted: false,
			editor:  &fakeEditor{out: "edited.jpg"},
			want:    "orig.jpg",
			wantErr: device.ErrPermissionDenied,
		},
		{
			name:      "cancel keeps previous image",
			granted:   true,
			editor:    &fakeEditor{err: device.ErrCancelled},
			want:      "orig.jpg",
			wantErr:   device.ErrCancelled,
			wantAsset: true,
		},
		{
			name:      "editor error keeps previous image",
			granted:   true,
			editor:    &fakeEditor{err: errors.New("crashed")},
			want:      "orig.jpg",
			anyErr:    true,
			wantAsset: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &fakeGallery{granted: tt.granted}
			e := NewExecutor(nil, g, tt.editor)

			got, err := e.ManualCrop(context.Background(), "orig.jpg")
			if got != tt.want {
				t.Errorf("ManualCrop = %q, want %q", got, tt.want)
			}
			switch {
			case tt.wantErr != nil && !errors.Is(err, tt.wantErr):
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			case tt.anyErr && err == nil:
				t.Errorf("expected an error")
			case tt.wantErr == nil && !tt.anyErr && err != nil:
				t.Errorf("unexpected error: %v", err)
			}

			if tt.wantAsset {
				if len(g.created) != 1 || len(g.deleted) != 1 || g.created[0] != g.deleted[0] {
					t.Errorf("temp asset not cleaned up: created=%v deleted=%v", g.created, g.deleted)
				}
				if tt.editor.aspect != geometry.CardAspect {
					t.Errorf("editor aspect = %+v, want %+v", tt.editor.aspect, geometry.CardAspect)
				}
			} else if len(g.created) != 0 {
				t.Errorf("no temp asset expected, got %v", g.created)
			}
		})
	}
}

func TestManualCropCleansUpOnPanic(t *testing.T) {
	g := &fakeGallery{granted: true}
	e := NewExecutor(nil, g, &fakeEditor{panics: true})

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("expected panic to propagate")
			}
		}()
		_, _ = e.ManualCrop(context.Background(), "orig.jpg")
	}()

	if len(g.deleted) != 1 {
		t.Errorf("temp asset not deleted after panic: %v", g.deleted)
	}
}
