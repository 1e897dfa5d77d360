// Package util - Input file discovery for the detector binaries.
package util

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	// Registers the WebP decoder with image.Decode.
	_ "github.com/chai2010/webp"
	"github.com/pkg/errors"
)

// SupportedImageExtensions lists the decodable input formats.
var SupportedImageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".gif", ".tif", ".tiff", ".webp"}

// IsSupportedImage reports whether path has a decodable image extension.
func IsSupportedImage(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedImageExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// ImageFile represents an image file.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Frame is the number parsed from a "frame-N" file name, or -1.
	Frame int
}

// ExpandImagePaths resolves files and directories into image files.
//
// Files are kept in argument order. Directory entries are ordered by frame number when
// they are named "frame-N", then by name.
//
// Arguments:
//   - paths: File or directory paths.
//
// Returns:
//   - []ImageFile: The image files.
//   - error: An error if a path does not exist, a file has an unsupported extension, or a
//     directory cannot be read.
func ExpandImagePaths(paths []string) ([]ImageFile, error) {
	var out []ImageFile
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, errors.Wrapf(err, "stat %s", p)
		}
		if !info.IsDir() {
			if !IsSupportedImage(p) {
				return nil, errors.Errorf("unsupported file extension: %s. Supported extensions: %v",
					filepath.Ext(p), SupportedImageExtensions)
			}
			out = append(out, ImageFile{Path: p, Frame: frameNumber(p)})
			continue
		}

		files, err := LoadDirectoryImageFiles(p)
		if err != nil {
			return nil, err
		}
		out = append(out, files...)
	}
	return out, nil
}

// LoadDirectoryImageFiles lists the image files in a directory, non-recursively.
//
// Arguments:
//   - dir: Directory path containing image files.
//
// Returns:
//   - []ImageFile: The image files, "frame-N" files first by N, then the rest by name.
//   - error: Error if the directory cannot be read.
func LoadDirectoryImageFiles(dir string) ([]ImageFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read dir %s", dir)
	}

	var files []ImageFile
	for _, e := range entries {
		if e.IsDir() || !IsSupportedImage(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		files = append(files, ImageFile{Path: path, Frame: frameNumber(path)})
	}

	sort.SliceStable(files, func(i, j int) bool {
		a, b := files[i], files[j]
		switch {
		case a.Frame >= 0 && b.Frame >= 0 && a.Frame != b.Frame:
			return a.Frame < b.Frame
		case (a.Frame >= 0) != (b.Frame >= 0):
			return a.Frame >= 0
		default:
			return a.Path < b.Path
		}
	})

	return files, nil
}

// frameNumber parses N from "frame-N.ext", or returns -1.
func frameNumber(path string) int {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if !strings.HasPrefix(name, "frame-") {
		return -1
	}
	n, err := strconv.Atoi(strings.TrimPrefix(name, "frame-"))
	if err != nil || n < 0 {
		return -1
	}
	return n
}
