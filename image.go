package main

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bodgit/sevenzip"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/nwaples/rardecode"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// stdinPath identifies the image whose bytes were read from stdin.
const stdinPath = "-"

const (
	// GIF frames this short are played at the usual browser rate instead
	minFrameDelay     = 10 * time.Millisecond
	defaultFrameDelay = 100 * time.Millisecond
)

type ImagePath struct {
	Path        string // Local file path or archive:entry format
	ArchivePath string // Empty for regular files, path to archive for entries
	EntryPath   string // Empty for regular files, path within archive for entries
}

func (p ImagePath) IsStdin() bool {
	return p.Path == stdinPath && p.ArchivePath == ""
}

func isArchiveExt(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".zip", ".rar", ".7z":
		return true
	default:
		return false
	}
}

func isSupportedExt(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".webp", ".bmp", ".gif", ".tif", ".tiff":
		return true
	default:
		return false
	}
}

// Animation is a multi-frame image. Frame must be called with consecutive
// indices (wrapping back to 0 is allowed); it is not safe for concurrent use.
type Animation interface {
	FrameCount() int
	Delay(i int) time.Duration
	Frame(i int) *image.RGBA
}

// DecodedImage is the result of a decode. Animation is nil for still images.
type DecodedImage struct {
	First     *image.RGBA
	Width     int
	Height    int
	Animation Animation
}

// FrameDecoder turns a ref (or raw bytes standing for it) into pixels.
// It is called from the loader goroutine only.
type FrameDecoder interface {
	Decode(ref ImagePath, data []byte) (*DecodedImage, error)
}

// ImageDecoder reads regular files, archive entries and in-memory data.
type ImageDecoder struct {
	archives *ArchiveReader
}

func NewImageDecoder(archives *ArchiveReader) *ImageDecoder {
	return &ImageDecoder{archives: archives}
}

func (d *ImageDecoder) Decode(ref ImagePath, data []byte) (*DecodedImage, error) {
	switch {
	case data != nil:
		return decodeImageBytes(data, ref.Path)
	case ref.ArchivePath != "":
		entry, err := d.archives.ReadEntry(ref)
		if err != nil {
			return nil, err
		}
		return decodeImageBytes(entry, ref.Path)
	default:
		raw, err := os.ReadFile(ref.Path)
		if err != nil {
			return nil, err
		}
		return decodeImageBytes(raw, ref.Path)
	}
}

func decodeImageBytes(data []byte, path string) (*DecodedImage, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	if format == "gif" {
		g, err := gif.DecodeAll(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
		if len(g.Image) > 1 {
			anim := newGIFAnimation(g)
			first := anim.Frame(0)
			return &DecodedImage{
				First:     cloneRGBA(first),
				Width:     first.Bounds().Dx(),
				Height:    first.Bounds().Dy(),
				Animation: anim,
			}, nil
		}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	rgba := toRGBA(img)
	return &DecodedImage{
		First:  rgba,
		Width:  rgba.Bounds().Dx(),
		Height: rgba.Bounds().Dy(),
	}, nil
}

// toRGBA copies img into a fresh RGBA whose bounds start at the origin.
func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}

// gifAnimation composites GIF frames onto a canvas, building the frame table
// lazily as playback reaches each frame for the first time.
type gifAnimation struct {
	g      *gif.GIF
	canvas *image.RGBA
	frames []*image.RGBA
	next   int // first frame not yet composited
}

func newGIFAnimation(g *gif.GIF) *gifAnimation {
	w, h := g.Config.Width, g.Config.Height
	if w == 0 || h == 0 {
		b := g.Image[0].Bounds()
		w, h = b.Max.X, b.Max.Y
	}
	return &gifAnimation{
		g:      g,
		canvas: image.NewRGBA(image.Rect(0, 0, w, h)),
		frames: make([]*image.RGBA, len(g.Image)),
	}
}

func (a *gifAnimation) FrameCount() int {
	return len(a.g.Image)
}

func (a *gifAnimation) Delay(i int) time.Duration {
	if i < 0 || i >= len(a.g.Delay) {
		return defaultFrameDelay
	}
	d := time.Duration(a.g.Delay[i]) * 10 * time.Millisecond
	if d <= minFrameDelay {
		return defaultFrameDelay
	}
	return d
}

func (a *gifAnimation) Frame(i int) *image.RGBA {
	for a.next <= i {
		a.composite(a.next)
	}
	return a.frames[i]
}

func (a *gifAnimation) composite(i int) {
	frame := a.g.Image[i]
	disposal := byte(0)
	if i < len(a.g.Disposal) {
		disposal = a.g.Disposal[i]
	}

	var previous *image.RGBA
	if disposal == gif.DisposalPrevious {
		previous = cloneRGBA(a.canvas)
	}

	draw.Draw(a.canvas, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)
	a.frames[i] = cloneRGBA(a.canvas)

	switch disposal {
	case gif.DisposalBackground:
		draw.Draw(a.canvas, frame.Bounds(), image.Transparent, image.Point{}, draw.Src)
	case gif.DisposalPrevious:
		a.canvas = previous
	}
	a.next = i + 1
}

// ArchiveReader lists and reads images stored in zip, rar and 7z archives.
// Entry bytes are kept in a small LRU cache since rar entries can only be
// reached by scanning the archive from the start.
type ArchiveReader struct {
	cache *lru.Cache[string, []byte]
}

func NewArchiveReader(cacheSize int) *ArchiveReader {
	cache, err := lru.NewWithEvict[string, []byte](cacheSize, func(key string, _ []byte) {
		debugLog("archive cache evicted %s", key)
	})
	if err != nil {
		logger.Warn("invalid archive cache size, using default", "size", cacheSize, "err", err)
		cache, _ = lru.New[string, []byte](defaultArchiveCacheSize)
	}
	return &ArchiveReader{cache: cache}
}

// ReadEntry returns the raw bytes of an archive entry.
func (r *ArchiveReader) ReadEntry(ref ImagePath) ([]byte, error) {
	if data, ok := r.cache.Get(ref.Path); ok {
		debugLog("archive cache hit %s", ref.Path)
		return data, nil
	}

	var data []byte
	var err error
	ext := strings.ToLower(filepath.Ext(ref.ArchivePath))
	switch ext {
	case ".zip":
		data, err = readZipEntry(ref.ArchivePath, ref.EntryPath)
	case ".rar":
		data, err = readRarEntry(ref.ArchivePath, ref.EntryPath)
	case ".7z":
		data, err = read7zEntry(ref.ArchivePath, ref.EntryPath)
	default:
		return nil, fmt.Errorf("unsupported archive format: %s", ext)
	}
	if err != nil {
		return nil, err
	}
	r.cache.Add(ref.Path, data)
	return data, nil
}

func readZipEntry(archivePath, entryPath string) ([]byte, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name == entryPath {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("entry %s not found in %s", entryPath, archivePath)
}

func readRarEntry(archivePath, entryPath string) ([]byte, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := rardecode.NewReader(f, "")
	if err != nil {
		return nil, err
	}

	for {
		header, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if header.Name == entryPath {
			return io.ReadAll(r)
		}
	}
	return nil, fmt.Errorf("entry %s not found in %s", entryPath, archivePath)
}

func read7zEntry(archivePath, entryPath string) ([]byte, error) {
	r, err := sevenzip.OpenReader(archivePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name == entryPath {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("entry %s not found in %s", entryPath, archivePath)
}

func archiveEntry(archivePath, name string) ImagePath {
	return ImagePath{
		Path:        archivePath + ":" + name,
		ArchivePath: archivePath,
		EntryPath:   name,
	}
}

// List returns the image entries of an archive in archive order.
func (r *ArchiveReader) List(archivePath string) ([]ImagePath, error) {
	ext := strings.ToLower(filepath.Ext(archivePath))
	switch ext {
	case ".zip":
		return listZip(archivePath)
	case ".rar":
		return listRar(archivePath)
	case ".7z":
		return list7z(archivePath)
	default:
		return nil, fmt.Errorf("unsupported archive format: %s", ext)
	}
}

func listZip(archivePath string) ([]ImagePath, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var images []ImagePath
	for _, f := range r.File {
		if !f.FileInfo().IsDir() && isSupportedExt(f.Name) {
			images = append(images, archiveEntry(archivePath, f.Name))
		}
	}
	return images, nil
}

func listRar(archivePath string) ([]ImagePath, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := rardecode.NewReader(f, "")
	if err != nil {
		return nil, err
	}

	var images []ImagePath
	for {
		header, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if !header.IsDir && isSupportedExt(header.Name) {
			images = append(images, archiveEntry(archivePath, header.Name))
		}
	}
	return images, nil
}

func list7z(archivePath string) ([]ImagePath, error) {
	r, err := sevenzip.OpenReader(archivePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var images []ImagePath
	for _, f := range r.File {
		if !f.FileInfo().IsDir() && isSupportedExt(f.Name) {
			images = append(images, archiveEntry(archivePath, f.Name))
		}
	}
	return images, nil
}

// FileExpander is the filesystem side of Navigator.Add.
type FileExpander struct {
	archives *ArchiveReader
	sorter   SortStrategy
}

func NewFileExpander(archives *ArchiveReader, sorter SortStrategy) *FileExpander {
	return &FileExpander{archives: archives, sorter: sorter}
}

func (e *FileExpander) Expand(path string, recursive bool) []ImagePath {
	if path == stdinPath {
		return []ImagePath{{Path: path}}
	}

	if isArchiveExt(path) {
		if entries, ok := e.expandArchive(path); ok {
			return entries
		}
		// let the decoder report the broken archive
		return []ImagePath{{Path: path}}
	}

	if !recursive {
		return []ImagePath{{Path: path}}
	}

	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return []ImagePath{{Path: path}}
	}

	var found []ImagePath
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				logger.Warn("skipping unreadable path", "path", p)
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if isSupportedExt(p) {
			found = append(found, ImagePath{Path: p})
		} else if isArchiveExt(p) {
			if entries, ok := e.expandArchive(p); ok {
				found = append(found, entries...)
			}
		}
		return nil
	})
	if err != nil {
		logger.Warn("directory walk stopped early", "path", path, "err", err)
	}
	return e.sorter.Sort(found)
}

func (e *FileExpander) expandArchive(path string) ([]ImagePath, bool) {
	entries, err := e.archives.List(path)
	if err != nil {
		logger.Warn("skipping problematic archive", "path", path, "err", err)
		return nil, false
	}
	return e.sorter.Sort(entries), true
}
