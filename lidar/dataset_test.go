package lidar

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFrames(t *testing.T) {
	root := writeDataset(t, 3, 3, []Point3D{{X: 10, R: 0.5}})

	frames, err := LoadFrames(root, DefaultDatasetLayout())
	if err != nil {
		t.Fatalf("LoadFrames() error = %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("got %d frames, want 3", len(frames))
	}
	for i, f := range frames {
		if f.Index != i {
			t.Errorf("frame %d Index = %d", i, f.Index)
		}
		if filepath.Base(f.ImagePath) != FrameFileName(i) {
			t.Errorf("frame %d ImagePath = %s", i, f.ImagePath)
		}
		if filepath.Ext(f.CloudPath) != ".bin" {
			t.Errorf("frame %d CloudPath = %s", i, f.CloudPath)
		}
	}
}

func TestLoadFrames_Errors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T) string
		wantErr error
	}{
		{
			name: "count mismatch",
			setup: func(t *testing.T) string {
				return writeDataset(t, 3, 4, []Point3D{{X: 10, R: 0.5}})
			},
			wantErr: ErrCountMismatch,
		},
		{
			name: "no images",
			setup: func(t *testing.T) string {
				return writeDataset(t, 0, 2, []Point3D{{X: 10, R: 0.5}})
			},
			wantErr: ErrEmptyDataSet,
		},
		{
			name: "no clouds",
			setup: func(t *testing.T) string {
				return writeDataset(t, 2, 0, nil)
			},
			wantErr: ErrEmptyDataSet,
		},
		{
			name: "missing data root",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "absent")
			},
			wantErr: ErrPathNotFound,
		},
		{
			name: "missing sensor folder",
			setup: func(t *testing.T) string {
				return t.TempDir()
			},
			wantErr: ErrPathNotFound,
		},
		{
			name: "sensor folder without data",
			setup: func(t *testing.T) string {
				root := t.TempDir()
				if err := os.MkdirAll(filepath.Join(root, "image_02"), 0755); err != nil {
					t.Fatal(err)
				}
				return root
			},
			wantErr: ErrPathNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrames(tt.setup(t), DefaultDatasetLayout())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("LoadFrames() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestListFilesSortedAndFiltered(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.PNG", "a.png", "c.txt", "d.png"} {
		writeFile(t, filepath.Join(dir, name), "x")
	}
	if err := os.Mkdir(filepath.Join(dir, "e.png"), 0755); err != nil {
		t.Fatal(err)
	}

	files, err := ListFiles(dir, ".png")
	if err != nil {
		t.Fatalf("ListFiles() error = %v", err)
	}
	want := []string{"a.png", "b.PNG", "d.png"}
	if len(files) != len(want) {
		t.Fatalf("ListFiles() = %v, want %v", files, want)
	}
	for i := range want {
		if filepath.Base(files[i]) != want[i] {
			t.Errorf("file %d = %s, want %s", i, filepath.Base(files[i]), want[i])
		}
	}
}

func TestFindSubDirNested(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "2011_09_26", "drive_0001_sync", "velodyne_points")
	if err := os.MkdirAll(target, 0755); err != nil {
		t.Fatal(err)
	}

	got, err := FindSubDir(root, "velodyne_points")
	if err != nil {
		t.Fatalf("FindSubDir() error = %v", err)
	}
	if got != target {
		t.Errorf("FindSubDir() = %s, want %s", got, target)
	}
}
