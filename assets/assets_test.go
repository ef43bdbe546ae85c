package assets

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matt-g-everett/framescroll/loop"
	"github.com/matt-g-everett/framescroll/playback"
)

// chanPoster hands posted callbacks to the test goroutine.
type chanPoster chan func()

func (c chanPoster) Post(fn func()) { c <- fn }

func await(t *testing.T, c chanPoster, f *loop.Future[playback.Asset]) (playback.Asset, error) {
	t.Helper()
	select {
	case fn := <-c:
		fn()
	case <-time.After(5 * time.Second):
		t.Fatal("load did not complete")
	}
	require.True(t, f.Done())
	return f.Result()
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func writePNG(t *testing.T, dir, name string, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	for x := 0; x < 4; x++ {
		for y := 0; y < 3; y++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644))
	return buf.Bytes()
}

func TestFileLoaderReadsAndCaches(t *testing.T) {
	dir := t.TempDir()
	data := writePNG(t, dir, "f01.png", color.RGBA{R: 255, A: 255})
	post := make(chanPoster, 1)
	l := NewFileLoader(post, 2, 1<<20, quietLogger())

	url := filepath.Join(dir, "f01.png")
	a, err := await(t, post, l.LoadAsset(url))
	require.NoError(t, err)
	frame := a.(*Frame)
	assert.Equal(t, url, frame.URL)
	assert.Equal(t, image.Rect(0, 0, 4, 3), frame.Image.Bounds())
	assert.Equal(t, len(data), l.CachedBytes())

	// The cached copy is used even after the file is gone.
	require.NoError(t, os.Remove(url))
	_, err = await(t, post, l.LoadAsset(url))
	assert.NoError(t, err)
}

func TestFileLoaderCacheLimit(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "f01.png", color.White)
	post := make(chanPoster, 1)
	l := NewFileLoader(post, 1, 1, quietLogger())

	_, err := await(t, post, l.LoadAsset(filepath.Join(dir, "f01.png")))
	require.NoError(t, err)
	assert.Equal(t, 0, l.CachedBytes())
}

func TestFileLoaderErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk.jpg"), []byte("not an image"), 0o644))
	post := make(chanPoster, 1)
	l := NewFileLoader(post, 1, 0, quietLogger())

	_, err := await(t, post, l.LoadAsset(filepath.Join(dir, "missing.jpg")))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = await(t, post, l.LoadAsset(filepath.Join(dir, "junk.jpg")))
	assert.ErrorIs(t, err, image.ErrFormat)
}

func TestFileLoaderHTTP(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "f02.png", color.Black)
	srv := httptest.NewServer(http.FileServer(http.Dir(dir)))
	defer srv.Close()

	post := make(chanPoster, 1)
	l := NewFileLoader(post, 1, 1<<20, quietLogger())

	a, err := await(t, post, l.LoadAsset(srv.URL+"/f02.png"))
	require.NoError(t, err)
	assert.NotNil(t, a.(*Frame).Image)

	_, err = await(t, post, l.LoadAsset(srv.URL+"/nope.png"))
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestFrameNumber(t *testing.T) {
	tests := []struct {
		url  string
		want int
	}{
		{"frames/clip_042.jpg", 42},
		{"http://cdn.example/hd/f7.png", 7},
		{"clip_100.mp4", 100},
		{"a1b/frame_009", 9},
	}
	for _, tt := range tests {
		got, err := FrameNumber(tt.url)
		require.NoError(t, err, tt.url)
		assert.Equal(t, tt.want, got, tt.url)
	}

	_, err := FrameNumber("frames/cover.jpg")
	assert.Error(t, err)
}

func TestSyntheticLoader(t *testing.T) {
	post := make(chanPoster, 1)
	l := NewSyntheticLoader(post, 10, "hd/", 0, 0)

	a, err := await(t, post, l.LoadAsset("sd/f01.jpg"))
	require.NoError(t, err)
	low := a.(*Frame)
	assert.Equal(t, image.Rect(0, 0, 64, 36), low.Image.Bounds())
	assert.Equal(t, l.Color(1), low.Image.At(3, 3))

	a, err = await(t, post, l.LoadAsset("hd/f10.jpg"))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 256, 144), a.(*Frame).Image.Bounds())

	_, err = await(t, post, l.LoadAsset("sd/f11.jpg"))
	assert.ErrorIs(t, err, playback.ErrFrameOutOfRange)

	assert.NotEqual(t, l.Color(1), l.Color(5))
}

func TestGradientEndpoints(t *testing.T) {
	first := DefaultGradient.GetColor(0, 0.6, 0.5)
	last := DefaultGradient.GetColor(1, 0.6, 0.5)
	past := DefaultGradient.GetColor(1.5, 0.6, 0.5)

	// Hue 0 and 360 are the same colour.
	assert.InDelta(t, first.R, last.R, 1e-9)
	assert.InDelta(t, first.G, last.G, 1e-9)
	assert.InDelta(t, first.B, last.B, 1e-9)
	assert.Equal(t, last, past)
}
