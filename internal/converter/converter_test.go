package converter

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pic/internal/config"
	"pic/internal/imageio"
	"pic/internal/ledger"
	"pic/internal/raster"
)

var fixedNow = time.Date(2026, time.October, 19, 9, 5, 3, 0, time.Local)

func fixedClock() time.Time { return fixedNow }

type dirs struct {
	source string
	target string
}

func newDirs(t *testing.T) dirs {
	t.Helper()
	root := t.TempDir()
	return dirs{source: filepath.Join(root, "images"), target: filepath.Join(root, "converted_images")}
}

func newConverter(t *testing.T, d dirs, del, organise, auto bool, opts ...Option) *Converter {
	t.Helper()
	cfg, err := config.New(d.source, d.target, del, organise, auto)
	require.NoError(t, err)
	opts = append([]Option{WithClock(fixedClock)}, opts...)
	c, err := New(cfg, opts...)
	require.NoError(t, err)
	return c
}

func writeImage(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	rng := rand.New(rand.NewSource(int64(w*h + len(path))))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(rng.Intn(256)), G: uint8(x * 2), B: uint8(y * 2), A: 255})
		}
	}

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	if filepath.Ext(path) == ".png" {
		require.NoError(t, png.Encode(f, img))
		return
	}
	require.NoError(t, jpeg.Encode(f, img, &jpeg.Options{Quality: 90}))
}

func writeText(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func plainFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return names
}

func subdirs(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names
}

func TestNewCreatesMissingDirectories(t *testing.T) {
	d := newDirs(t)
	newConverter(t, d, false, false, false)

	for _, p := range []string{d.source, d.target} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestNewDirectoryCreationFails(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "blocker")
	writeText(t, blocker, "not a directory")
	source := filepath.Join(root, "src")
	target := filepath.Join(blocker, "out")

	cfg, err := config.New(source, target, false, false, false)
	require.NoError(t, err)
	_, err = New(cfg)
	require.True(t, IsDirectoryCreation(err), "got %v", err)

	var dce *DirectoryCreationError
	require.ErrorAs(t, err, &dce)
	assert.Equal(t, target, dce.Path)

	// The source created before the failure stays.
	info, statErr := os.Stat(source)
	require.NoError(t, statErr)
	assert.True(t, info.IsDir())
}

func TestNewRejectsFileAsDirectory(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "images")
	writeText(t, file, "x")

	cfg, err := config.New(file, filepath.Join(root, "out"), false, false, false)
	require.NoError(t, err)
	_, err = New(cfg)
	assert.True(t, IsDirectoryCreation(err))
}

func TestNewInvalidConfigDoesNoIO(t *testing.T) {
	d := newDirs(t)
	cfg, err := config.New(d.source, d.target, false, false, false)
	require.NoError(t, err)
	cfg.Method = "otsu"

	_, err = New(cfg)
	require.Error(t, err)
	_, statErr := os.Stat(d.source)
	assert.True(t, os.IsNotExist(statErr))
}

func TestDiscoverScenario(t *testing.T) {
	d := newDirs(t)
	c := newConverter(t, d, false, false, false)
	writeText(t, filepath.Join(d.source, "a.jpg"), "")
	writeText(t, filepath.Join(d.source, "b.png"), "")
	writeText(t, filepath.Join(d.source, "notes.txt"), "")
	writeText(t, filepath.Join(d.source, "C.JPG"), "")
	require.NoError(t, os.Mkdir(filepath.Join(d.source, "folder.jpg"), 0o755))

	n, err := c.LoadImages()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []ImageRef{
		{Directory: d.source, Filename: "a.jpg"},
		{Directory: d.source, Filename: "b.png"},
	}, c.Worklist())

	// Loading again rebuilds rather than appends.
	n, err = c.LoadImages()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, c.Worklist(), 2)
}

func TestDiscoverNoImages(t *testing.T) {
	dir := t.TempDir()
	writeText(t, filepath.Join(dir, "readme.md"), "")

	_, err := Discover(dir)
	require.True(t, IsNoImagesFound(err))

	_, err = Discover(filepath.Join(dir, "missing"))
	require.True(t, IsNoImagesFound(err))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestRunBeforeLoad(t *testing.T) {
	c := newConverter(t, newDirs(t), false, false, false)
	_, err := c.ConvertToPaintable(context.Background(), nil)
	assert.True(t, IsNoImagesFound(err))
}

func TestPaintableRunSingleImage(t *testing.T) {
	d := newDirs(t)
	c := newConverter(t, d, false, false, false)
	writeImage(t, filepath.Join(d.source, "a.jpg"), 100, 100)

	_, err := c.LoadImages()
	require.NoError(t, err)

	updates := make(chan ProgressUpdate, 16)
	summary, err := c.ConvertToPaintable(context.Background(), updates)
	require.NoError(t, err)
	close(updates)

	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 1, summary.Converted)
	assert.Zero(t, summary.Failed)

	want := "paintable-contours-October_19_2026-09_05_03-a.jpg"
	assert.Equal(t, []string{want}, plainFiles(t, d.target))
	assert.Equal(t, []string{filepath.Join(d.target, want)}, summary.Outputs)

	f, err := os.Open(filepath.Join(d.target, want))
	require.NoError(t, err)
	defer f.Close()
	img, err := jpeg.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 100, 100), img.Bounds())

	var processed int
	for u := range updates {
		processed += u.ProcessedDelta
	}
	assert.Equal(t, 1, processed)

	// Sources are untouched without cleanup.
	assert.Equal(t, []string{"a.jpg"}, plainFiles(t, d.source))
}

func TestChalkRunForcesJPG(t *testing.T) {
	d := newDirs(t)
	c := newConverter(t, d, false, false, false)
	writeImage(t, filepath.Join(d.source, "b.png"), 32, 24)

	_, err := c.LoadImages()
	require.NoError(t, err)
	summary, err := c.ConvertToChalk(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Converted)
	assert.Equal(t, []string{"chalk-October_19_2026-09_05_03-b.jpg"}, plainFiles(t, d.target))
}

func TestRunIsolatesDecodeFailures(t *testing.T) {
	d := newDirs(t)
	c := newConverter(t, d, true, false, true)
	writeImage(t, filepath.Join(d.source, "a.jpg"), 20, 20)
	writeText(t, filepath.Join(d.source, "bad.jpg"), "this is not a jpeg")
	writeImage(t, filepath.Join(d.source, "c.png"), 20, 20)

	_, err := c.LoadImages()
	require.NoError(t, err)

	summary, err := c.ConvertToPaintable(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, IsBatch(err))
	assert.True(t, imageio.IsDecodeError(err))

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Converted)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "bad.jpg", summary.Failures[0].Ref.Filename)
	assert.Len(t, plainFiles(t, d.target), 2)

	// Cleanup is skipped after failures, so nothing was deleted.
	assert.Zero(t, summary.Cleaned)
	assert.Len(t, plainFiles(t, d.source), 3)
}

func TestRunCancelled(t *testing.T) {
	d := newDirs(t)
	c := newConverter(t, d, false, false, false)
	writeImage(t, filepath.Join(d.source, "a.jpg"), 8, 8)
	_, err := c.LoadImages()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := c.ConvertToChalk(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, summary.Converted)
	assert.Empty(t, plainFiles(t, d.target))
}

func TestOrganiseAutoCleanupScenario(t *testing.T) {
	d := newDirs(t)
	c := newConverter(t, d, false, true, true)
	writeImage(t, filepath.Join(d.source, "a.jpg"), 16, 16)
	writeImage(t, filepath.Join(d.source, "b.png"), 16, 16)

	_, err := c.LoadImages()
	require.NoError(t, err)
	summary, err := c.ConvertToPaintable(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Cleaned)

	assert.Empty(t, plainFiles(t, d.source))
	folders := subdirs(t, d.source)
	require.Len(t, folders, 1)
	assert.Equal(t, "October 19 2026 09 05 03", folders[0])
	assert.ElementsMatch(t, []string{"a.jpg", "b.png"}, plainFiles(t, filepath.Join(d.source, folders[0])))
}

func TestCleanupOrganiseSweepsEverything(t *testing.T) {
	for _, n := range []int{1, 3, 7} {
		d := newDirs(t)
		c := newConverter(t, d, false, true, false)
		for i := 0; i < n; i++ {
			writeText(t, filepath.Join(d.source, string(rune('a'+i))+".txt"), "x")
		}

		handled, err := c.Cleanup()
		require.NoError(t, err)
		assert.Equal(t, n, handled)
		assert.Empty(t, plainFiles(t, d.source))
		folders := subdirs(t, d.source)
		require.Len(t, folders, 1)
		assert.Len(t, plainFiles(t, filepath.Join(d.source, folders[0])), n)
	}
}

func TestCleanupOrganiseEmptyCreatesNothing(t *testing.T) {
	d := newDirs(t)
	c := newConverter(t, d, false, true, false)

	handled, err := c.Cleanup()
	require.NoError(t, err)
	assert.Zero(t, handled)
	assert.Empty(t, subdirs(t, d.source))
}

func TestCleanupDeleteRemovesAllPlainFiles(t *testing.T) {
	d := newDirs(t)
	c := newConverter(t, d, true, false, false)
	writeText(t, filepath.Join(d.source, "a.jpg"), "x")
	writeText(t, filepath.Join(d.source, "notes.txt"), "x")
	require.NoError(t, os.Mkdir(filepath.Join(d.source, "keep"), 0o755))
	writeText(t, filepath.Join(d.source, "keep", "inner.png"), "x")

	handled, err := c.Cleanup()
	require.NoError(t, err)
	assert.Equal(t, 2, handled)
	assert.Empty(t, plainFiles(t, d.source))
	assert.Equal(t, []string{"keep"}, subdirs(t, d.source))
	assert.Equal(t, []string{"inner.png"}, plainFiles(t, filepath.Join(d.source, "keep")))
}

func TestCleanupNoneTouchesNothing(t *testing.T) {
	d := newDirs(t)
	c := newConverter(t, d, false, false, true)
	writeText(t, filepath.Join(d.source, "a.jpg"), "x")

	handled, err := c.Cleanup()
	require.NoError(t, err)
	assert.Zero(t, handled)
	assert.Equal(t, []string{"a.jpg"}, plainFiles(t, d.source))
}

func TestPaintableOutputIsBinary(t *testing.T) {
	src := raster.New(37, 23, 3)
	rng := rand.New(rand.NewSource(3))
	for i := range src.Pix {
		src.Pix[i] = uint8(rng.Intn(256))
	}

	out, err := Paintable(src, raster.AdaptiveGaussian)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Channels)
	for i, v := range out.Pix {
		if v != 0 && v != 255 {
			t.Fatalf("sample %d = %d", i, v)
		}
	}
}

func TestChalkDetectsBothEdgeSides(t *testing.T) {
	// Left half dark, right half bright: the Laplacian is negative on one
	// side of the edge and positive on the other; both must show up.
	src := raster.New(10, 4, 3)
	for y := 0; y < 4; y++ {
		for x := 5; x < 10; x++ {
			i := (y*10 + x) * 3
			src.Pix[i], src.Pix[i+1], src.Pix[i+2] = 20, 20, 20
		}
	}

	out, err := Chalk(src)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Channels)
	for y := 0; y < 4; y++ {
		assert.Equal(t, uint8(80), out.Pix[y*10+4], "dark side of edge")
		assert.Equal(t, uint8(80), out.Pix[y*10+5], "bright side of edge")
		assert.Equal(t, uint8(0), out.Pix[y*10+1])
		assert.Equal(t, uint8(0), out.Pix[y*10+8])
	}
}

func TestOutputName(t *testing.T) {
	assert.Equal(t, "paintable-contours-October_19_2026-09_05_03-a.jpg", TransformPaintable.OutputName(fixedNow, "a.jpg"))
	assert.Equal(t, "chalk-October_19_2026-09_05_03-b.png", TransformChalk.OutputName(fixedNow, "b.png"))
}

type fakeRecorder struct {
	mu      sync.Mutex
	began   []string
	images  []string
	failed  int
	totals  ledger.Totals
	beginOK bool
}

func (f *fakeRecorder) BeginRun(_ context.Context, transform, _, _ string, _ time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.began = append(f.began, transform)
	if !f.beginOK {
		return "", errors.New("ledger unavailable")
	}
	return "run-1", nil
}

func (f *fakeRecorder) RecordImage(_ context.Context, _, source, _ string, imgErr error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images = append(f.images, filepath.Base(source))
	if imgErr != nil {
		f.failed++
	}
	return nil
}

func (f *fakeRecorder) FinishRun(_ context.Context, _ string, _ time.Time, totals ledger.Totals) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.totals = totals
	return nil
}

func TestRunRecordsToRecorder(t *testing.T) {
	d := newDirs(t)
	rec := &fakeRecorder{beginOK: true}
	c := newConverter(t, d, true, false, true, WithRecorder(rec))
	writeImage(t, filepath.Join(d.source, "a.jpg"), 12, 12)
	writeText(t, filepath.Join(d.source, "notes.txt"), "swept too")

	_, err := c.LoadImages()
	require.NoError(t, err)
	_, err = c.ConvertToChalk(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"chalk"}, rec.began)
	assert.Equal(t, []string{"a.jpg"}, rec.images)
	assert.Equal(t, ledger.Totals{Total: 1, Converted: 1, Cleaned: 2}, rec.totals)
	assert.Empty(t, plainFiles(t, d.source))
}

func TestRunContinuesWhenRecorderFails(t *testing.T) {
	d := newDirs(t)
	rec := &fakeRecorder{}
	c := newConverter(t, d, false, false, false, WithRecorder(rec))
	writeImage(t, filepath.Join(d.source, "a.jpg"), 12, 12)

	_, err := c.LoadImages()
	require.NoError(t, err)
	summary, err := c.ConvertToChalk(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Converted)
	assert.Empty(t, rec.images)
}

func TestLockDirsDuplicatePaths(t *testing.T) {
	unlock := lockDirs("/tmp/x", "/tmp/x/", "/tmp/y")
	unlock()

	done := make(chan struct{})
	go func() {
		u := lockDirs("/tmp/y", "/tmp/x")
		u()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("lockDirs deadlocked")
	}
}
