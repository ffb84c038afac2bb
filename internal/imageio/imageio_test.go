package imageio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	exif "github.com/dsoprea/go-exif/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pic/internal/raster"
)

func TestSaveForcesJPGExtension(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "png extension", in: "chalk-x-b.png", want: "chalk-x-b.jpg"},
		{name: "jpeg extension", in: "photo.jpeg", want: "photo.jpg"},
		{name: "no extension", in: "plain", want: "plain.jpg"},
		{name: "already jpg", in: "a.jpg", want: "a.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path, err := Codec{}.Save(grayBuffer(8, 6, 128), tt.in, dir, FormatJPEG)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(dir, tt.want), path)
			assert.Equal(t, ".jpg", filepath.Ext(path))

			f, err := os.Open(path)
			require.NoError(t, err)
			defer f.Close()
			img, err := jpeg.Decode(f)
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, 8, 6), img.Bounds())

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Len(t, entries, 1, "temporary files must not be left behind")
		})
	}
}

func TestSaveErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Codec{}.Save(grayBuffer(4, 4, 0), "a.png", filepath.Join(dir, "missing"), FormatJPEG)
	require.True(t, IsSaveError(err))
	var saveErr *SaveError
	require.ErrorAs(t, err, &saveErr)
	assert.Equal(t, "a.jpg", saveErr.Name)

	_, err = Codec{}.Save(&raster.Buffer{Width: 2, Height: 2, Channels: 1}, "b.jpg", dir, FormatJPEG)
	assert.True(t, IsSaveError(err))

	_, err = Codec{}.Save(grayBuffer(2, 2, 0), "../escape.jpg", dir, FormatJPEG)
	assert.True(t, IsSaveError(err))
}

func TestReadPNG(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "b.png"), 10, 7)

	buf, err := Codec{}.Read(ImageRef{Directory: dir, Filename: "b.png"})
	require.NoError(t, err)
	assert.Equal(t, 10, buf.Width)
	assert.Equal(t, 7, buf.Height)
	assert.Equal(t, 3, buf.Channels)
	assert.Equal(t, []uint8{200, 100, 50}, buf.Pix[:3])
}

func TestReadScales(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "big.png"), 100, 60)

	buf, err := Codec{Scale: 0.5}.Read(ImageRef{Directory: dir, Filename: "big.png"})
	require.NoError(t, err)
	assert.Equal(t, 50, buf.Width)
	assert.Equal(t, 30, buf.Height)
}

func TestReadDecodeFailures(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.jpg"), []byte("definitely not an image"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "short.png"), []byte{0x89, 'P'}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.jpg"), []byte{0xff, 0xd8, 0xff, 0xe0, 0, 4, 1, 2, 3, 4, 5}, 0o644))

	tests := []struct {
		file string
	}{
		{file: "notes.jpg"},
		{file: "short.png"},
		{file: "broken.jpg"},
		{file: "missing.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			buf, err := Codec{}.Read(ImageRef{Directory: dir, Filename: tt.file})
			assert.Nil(t, buf)
			require.True(t, IsDecodeError(err), "got %v", err)
			assert.Contains(t, err.Error(), tt.file)
		})
	}

	_, err := Codec{}.Read(ImageRef{Directory: dir, Filename: "notes.jpg"})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestReadAppliesExifOrientation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rotated.jpg")
	require.NoError(t, os.WriteFile(path, jpegWithOrientation(t, 4, 2, 6), 0o644))

	f, err := os.Open(path)
	require.NoError(t, err)
	orientation, err := readOrientation(f)
	_ = f.Close()
	require.NoError(t, err)
	assert.Equal(t, 6, orientation)

	buf, err := Codec{}.Read(ImageRef{Directory: dir, Filename: "rotated.jpg"})
	require.NoError(t, err)
	assert.Equal(t, 2, buf.Width)
	assert.Equal(t, 4, buf.Height)
}

func TestReadOrientationFromJPEGStream(t *testing.T) {
	tests := []struct {
		orientation   uint16
		width, height int
	}{
		{orientation: 1, width: 4, height: 2},
		{orientation: 3, width: 4, height: 2},
		{orientation: 6, width: 2, height: 4},
		{orientation: 8, width: 2, height: 4},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("orientation %d", tt.orientation), func(t *testing.T) {
			data := jpegWithOrientation(t, 4, 2, tt.orientation)

			got, err := readOrientation(bytes.NewReader(data))
			require.NoError(t, err)
			assert.Equal(t, int(tt.orientation), got)

			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, "in.jpg"), data, 0o644))
			buf, err := Codec{}.Read(ImageRef{Directory: dir, Filename: "in.jpg"})
			require.NoError(t, err)
			assert.Equal(t, tt.width, buf.Width)
			assert.Equal(t, tt.height, buf.Height)
		})
	}
}

func TestIsNoExif(t *testing.T) {
	assert.True(t, isNoExif(exif.ErrNoExif))
	assert.True(t, isNoExif(fmt.Errorf("searching: %w", exif.ErrNoExif)))
	assert.False(t, isNoExif(fmt.Errorf("no exif data in this message only")))
	assert.False(t, isNoExif(nil))
}

func TestReadOrientationWithoutExif(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 3, 3)), nil))

	orientation, err := readOrientation(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 1, orientation)
}

func TestApplyOrientation(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	for o := 1; o <= 8; o++ {
		got := applyOrientation(img, o).Bounds()
		if o >= 5 {
			assert.Equalf(t, image.Rect(0, 0, 2, 4), got, "orientation %d", o)
		} else {
			assert.Equalf(t, image.Rect(0, 0, 4, 2), got, "orientation %d", o)
		}
	}
}

func grayBuffer(w, h int, v uint8) *raster.Buffer {
	b := raster.New(w, h, 1)
	for i := range b.Pix {
		b.Pix[i] = v
	}
	return b
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

// jpegWithOrientation encodes a w×h JPEG and splices an APP1 EXIF segment
// holding only the Orientation tag right after SOI.
func jpegWithOrientation(t *testing.T, w, h int, orientation uint16) []byte {
	t.Helper()

	var encoded bytes.Buffer
	require.NoError(t, jpeg.Encode(&encoded, image.NewGray(image.Rect(0, 0, w, h)), &jpeg.Options{Quality: 90}))

	var tiff bytes.Buffer
	tiff.Write([]byte{0x49, 0x49, 0x2a, 0x00})
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(8))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(1))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(orientationTagID))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(3))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(1))
	_ = binary.Write(&tiff, binary.LittleEndian, orientation)
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(0))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(0))

	payload := append([]byte("Exif\x00\x00"), tiff.Bytes()...)

	var out bytes.Buffer
	out.Write([]byte{0xff, 0xd8})
	out.Write([]byte{0xff, 0xe1})
	_ = binary.Write(&out, binary.BigEndian, uint16(len(payload)+2))
	out.Write(payload)
	out.Write(encoded.Bytes()[2:])
	return out.Bytes()
}
