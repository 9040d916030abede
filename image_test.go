package main

import (
	"archive/zip"
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testRed  = color.RGBA{255, 0, 0, 255}
	testBlue = color.RGBA{0, 0, 255, 255}
)

func encodePNG(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func writeZip(t *testing.T, path string, entries map[string][]byte) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, data := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

// twoFrameGIF is 4x4 red, then a 2x2 blue patch drawn over the top left.
func twoFrameGIF(t *testing.T, delays []int) []byte {
	t.Helper()
	palette := color.Palette{testRed, testBlue}

	first := image.NewPaletted(image.Rect(0, 0, 4, 4), palette)
	second := image.NewPaletted(image.Rect(0, 0, 2, 2), palette)
	for i := range second.Pix {
		second.Pix[i] = 1
	}

	g := &gif.GIF{
		Image:    []*image.Paletted{first, second},
		Delay:    delays,
		Disposal: []byte{gif.DisposalNone, gif.DisposalNone},
		Config:   image.Config{ColorModel: palette, Width: 4, Height: 4},
	}
	var buf bytes.Buffer
	require.NoError(t, gif.EncodeAll(&buf, g))
	return buf.Bytes()
}

func TestSupportedExtensions(t *testing.T) {
	for _, p := range []string{"a.png", "b.JPG", "c.jpeg", "d.webp", "e.bmp", "f.gif", "g.tif", "h.TIFF"} {
		assert.True(t, isSupportedExt(p), p)
	}
	for _, p := range []string{"a.txt", "b", "c.zip", ".png.bak"} {
		assert.False(t, isSupportedExt(p), p)
	}
	assert.True(t, isArchiveExt("x.ZIP"))
	assert.True(t, isArchiveExt("x.rar"))
	assert.True(t, isArchiveExt("x.7z"))
	assert.False(t, isArchiveExt("x.tar"))
}

func TestImagePathIsStdin(t *testing.T) {
	assert.True(t, ImagePath{Path: "-"}.IsStdin())
	assert.False(t, ImagePath{Path: "-", ArchivePath: "a.zip"}.IsStdin())
	assert.False(t, ImagePath{Path: "a.png"}.IsStdin())
}

func TestDecodeStill(t *testing.T) {
	dec := NewImageDecoder(NewArchiveReader(4))

	img, err := dec.Decode(ImagePath{Path: stdinPath}, encodePNG(t, 3, 2, testRed))
	require.NoError(t, err)
	assert.Equal(t, 3, img.Width)
	assert.Equal(t, 2, img.Height)
	assert.Nil(t, img.Animation)
	assert.Equal(t, testRed, img.First.RGBAAt(2, 1))

	path := filepath.Join(t.TempDir(), "blue.png")
	writeFile(t, path, encodePNG(t, 5, 5, testBlue))
	img, err = dec.Decode(ImagePath{Path: path}, nil)
	require.NoError(t, err)
	assert.Equal(t, testBlue, img.First.RGBAAt(0, 0))
}

func TestDecodeErrors(t *testing.T) {
	dec := NewImageDecoder(NewArchiveReader(4))

	_, err := dec.Decode(ImagePath{Path: "junk"}, []byte("not an image"))
	assert.Error(t, err)

	_, err = dec.Decode(ImagePath{Path: filepath.Join(t.TempDir(), "missing.png")}, nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDecodeAnimatedGIF(t *testing.T) {
	img, err := decodeImageBytes(twoFrameGIF(t, []int{0, 50}), "anim.gif")
	require.NoError(t, err)
	require.NotNil(t, img.Animation)
	assert.Equal(t, 4, img.Width)
	assert.Equal(t, 4, img.Height)

	anim := img.Animation
	assert.Equal(t, 2, anim.FrameCount())
	assert.Equal(t, defaultFrameDelay, anim.Delay(0), "zero delay is clamped")
	assert.Equal(t, 500*time.Millisecond, anim.Delay(1))
	assert.Equal(t, defaultFrameDelay, anim.Delay(5))

	assert.Equal(t, testRed, img.First.RGBAAt(0, 0))

	second := anim.Frame(1)
	assert.Equal(t, testBlue, second.RGBAAt(0, 0))
	assert.Equal(t, testRed, second.RGBAAt(3, 3), "earlier frame shows through")

	// wrapping back reuses the composited table
	assert.Equal(t, testRed, anim.Frame(0).RGBAAt(0, 0))
}

func TestDecodeSingleFrameGIF(t *testing.T) {
	palette := color.Palette{testRed}
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, image.NewPaletted(image.Rect(0, 0, 2, 2), palette), nil))

	img, err := decodeImageBytes(buf.Bytes(), "still.gif")
	require.NoError(t, err)
	assert.Nil(t, img.Animation)
	assert.Equal(t, 2, img.Width)
}

func TestExpandDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.jpg"), nil)
	writeFile(t, filepath.Join(dir, "a.png"), nil)
	writeFile(t, filepath.Join(dir, "notes.txt"), nil)
	writeFile(t, filepath.Join(dir, "sub", "c.png"), nil)

	exp := NewFileExpander(NewArchiveReader(4), GetSortStrategy(SortNatural))

	assert.Equal(t, []ImagePath{{Path: dir}}, exp.Expand(dir, false))
	assert.Equal(t, []ImagePath{{Path: stdinPath}}, exp.Expand(stdinPath, true))

	got := exp.Expand(dir, true)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.png"),
		filepath.Join(dir, "b.jpg"),
		filepath.Join(dir, "sub", "c.png"),
	}, refPaths(got))

	file := filepath.Join(dir, "a.png")
	assert.Equal(t, []ImagePath{{Path: file}}, exp.Expand(file, true))
}

func TestExpandZipArchive(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "comic.zip")
	writeZip(t, archive, map[string][]byte{
		"10.png":     encodePNG(t, 1, 1, testBlue),
		"2.png":      encodePNG(t, 2, 2, testRed),
		"readme.txt": []byte("hello"),
	})

	archives := NewArchiveReader(4)
	exp := NewFileExpander(archives, GetSortStrategy(SortNatural))
	refs := exp.Expand(archive, false)
	require.Len(t, refs, 2)
	assert.Equal(t, "2.png", refs[0].EntryPath)
	assert.Equal(t, "10.png", refs[1].EntryPath)
	assert.Equal(t, archive, refs[0].ArchivePath)
	assert.Equal(t, archive+":2.png", refs[0].Path)

	img, err := NewImageDecoder(archives).Decode(refs[0], nil)
	require.NoError(t, err)
	assert.Equal(t, 2, img.Width)

	// the entry is served from the cache once the archive is gone
	require.NoError(t, os.Remove(archive))
	data, err := archives.ReadEntry(refs[0])
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	_, err = archives.ReadEntry(refs[1])
	assert.Error(t, err)
}

func TestExpandArchiveInsideDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.png"), nil)
	writeZip(t, filepath.Join(dir, "b.zip"), map[string][]byte{"1.png": nil})

	exp := NewFileExpander(NewArchiveReader(4), GetSortStrategy(SortNatural))
	got := exp.Expand(dir, true)
	require.Len(t, got, 2)
	assert.Equal(t, "1.png", got[1].EntryPath)
}

func TestExpandBrokenArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.zip")
	writeFile(t, path, []byte("not a zip"))

	exp := NewFileExpander(NewArchiveReader(4), GetSortStrategy(SortNatural))
	assert.Equal(t, []ImagePath{{Path: path}}, exp.Expand(path, false))
}

func TestArchiveReaderRejectsUnknownFormat(t *testing.T) {
	r := NewArchiveReader(0)
	_, err := r.List("x.tar")
	assert.Error(t, err)
	_, err = r.ReadEntry(ImagePath{Path: "x.tar:a.png", ArchivePath: "x.tar", EntryPath: "a.png"})
	assert.Error(t, err)
}
