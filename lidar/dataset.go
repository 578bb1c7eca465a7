package lidar

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// errStopWalk ends a directory walk once the target is found
var errStopWalk = errors.New("stop walk")

// FindSubDir searches root recursively (lexical order) for the first directory named name
func FindSubDir(root, name string) (string, error) {
	var found string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && path != root && d.Name() == name {
			found = path
			return errStopWalk
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("data root %s: %w", root, ErrPathNotFound)
	}
	if err != nil && !errors.Is(err, errStopWalk) {
		return "", fmt.Errorf("scanning %s: %w", root, err)
	}
	if found == "" {
		return "", fmt.Errorf("folder %q not found under %s: %w", name, root, ErrPathNotFound)
	}
	return found, nil
}

// ListFiles returns the sorted paths of regular files in dir with the given extension
func ListFiles(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ext) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// FindDataDir locates <sensorDir>/<dataDir> under root
func FindDataDir(root, sensorDir, dataDir string) (string, error) {
	sensorPath, err := FindSubDir(root, sensorDir)
	if err != nil {
		return "", err
	}

	dataPath := filepath.Join(sensorPath, dataDir)
	info, err := os.Stat(dataPath)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%q subdirectory not found in %s: %w", dataDir, sensorPath, ErrPathNotFound)
	}
	return dataPath, nil
}

// ListSensorFiles lists the files of one sensor stream
func ListSensorFiles(root, sensorDir, dataDir, ext string) ([]string, error) {
	dir, err := FindDataDir(root, sensorDir, dataDir)
	if err != nil {
		return nil, err
	}
	return ListFiles(dir, ext)
}

// LoadFrames discovers photographs and point clouds under root and pairs them by sorted index
func LoadFrames(root string, layout DatasetLayout) ([]Frame, error) {
	if layout.DataDir == "" {
		layout.DataDir = "data"
	}

	images, err := ListSensorFiles(root, layout.ImageDir, layout.DataDir, layout.ImageExt)
	if err != nil {
		return nil, fmt.Errorf("loading images: %w", err)
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("no images found in %s: %w", root, ErrEmptyDataSet)
	}

	clouds, err := ListSensorFiles(root, layout.CloudDir, layout.DataDir, layout.CloudExt)
	if err != nil {
		return nil, fmt.Errorf("loading point clouds: %w", err)
	}
	if len(clouds) == 0 {
		return nil, fmt.Errorf("no point clouds found in %s: %w", root, ErrEmptyDataSet)
	}

	if len(images) != len(clouds) {
		return nil, fmt.Errorf("%d images and %d point clouds: %w", len(images), len(clouds), ErrCountMismatch)
	}

	frames := make([]Frame, len(images))
	for i := range images {
		frames[i] = Frame{Index: i, ImagePath: images[i], CloudPath: clouds[i]}
	}
	return frames, nil
}
