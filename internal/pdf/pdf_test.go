package pdf

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/zbargo/internal/testutil"
)

func TestParsePageRange(t *testing.T) {
	tests := []struct {
		name        string
		pageRange   string
		want        []int
		expectError bool
	}{
		{name: "empty range returns nil", pageRange: "", want: nil},
		{name: "blank range returns nil", pageRange: "  ", want: nil},
		{name: "single page", pageRange: "1", want: []int{1}},
		{name: "multiple single pages", pageRange: "1,3,5", want: []int{1, 3, 5}},
		{name: "simple range", pageRange: "1-5", want: []int{1, 2, 3, 4, 5}},
		{name: "mixed pages and ranges", pageRange: "1,3-5,7", want: []int{1, 3, 4, 5, 7}},
		{name: "range with spaces", pageRange: " 1 - 3 , 5 ", want: []int{1, 2, 3, 5}},
		{name: "invalid page number", pageRange: "abc", expectError: true},
		{name: "invalid range format", pageRange: "1-2-3", expectError: true},
		{name: "reversed range", pageRange: "5-1", expectError: true},
		{name: "page zero", pageRange: "0", expectError: true},
		{name: "empty token", pageRange: "1,,2", expectError: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePageRange(tt.pageRange)
			if tt.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePageFromFilename(t *testing.T) {
	tests := []struct {
		name    string
		want    int
		wantErr bool
	}{
		{"page_1_image_1.png", 1, false},
		{"page_12_image_3.jpg", 12, false},
		{"fixture_3_Im0.png", 3, false},
		{"my_scan_doc_7_Im12.tif", 7, false},
		{"fixture_0_Im0.png", 0, true},
		{"page_x_image_1.png", 0, true},
		{"random.png", 0, true},
		{"a_b.png", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePageFromFilename(tt.name)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCollectExtractedImages(t *testing.T) {
	dir := t.TempDir()
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for y := range 6 {
		for x := range 8 {
			img.Set(x, y, color.RGBA{uint8(10 * x), uint8(10 * y), 0, 255})
		}
	}
	write := func(name string, enc func(*os.File) error) {
		f, err := os.Create(filepath.Join(dir, name)) //nolint:gosec // controlled test path
		require.NoError(t, err)
		require.NoError(t, enc(f))
		require.NoError(t, f.Close())
	}
	write("doc_1_Im0.png", func(f *os.File) error { return png.Encode(f, img) })
	write("doc_1_Im1.jpg", func(f *os.File) error { return jpeg.Encode(f, img, nil) })
	write("doc_2_Im0.png", func(f *os.File) error { return png.Encode(f, img) })
	write("doc_3_Im0.png", func(f *os.File) error { _, err := f.WriteString("garbage"); return err })
	write("notes.txt", func(f *os.File) error { _, err := f.WriteString("x"); return err })
	require.NoError(t, os.Mkdir(filepath.Join(dir, "doc_4_sub"), 0o750))

	got, err := collectExtractedImages(dir)
	require.NoError(t, err)
	assert.Len(t, got[1], 2)
	assert.Len(t, got[2], 1)
	assert.NotContains(t, got, 3)
	assert.Equal(t, []int{1, 2}, SortedPages(got))
}

func TestExtractImages_ErrorCases(t *testing.T) {
	_, err := ExtractImages("/non/existent/file.pdf", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to extract images from PDF")

	_, err = ExtractImages("dummy.pdf", "invalid-range")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid page range")
}

func TestExtractImages_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping PDF round trip in short mode")
	}
	dir := t.TempDir()
	qr, err := testutil.QRImage("page one")
	require.NoError(t, err)
	bar, err := testutil.Code128Image("PAGE-2", 400, 120)
	require.NoError(t, err)
	path := testutil.WritePDF(t, dir, qr, bar)

	n, err := PageCount(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	pages, err := ExtractImages(path, "")
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, SortedPages(pages))
	assert.Equal(t, qr.Bounds().Size(), pages[1][0].Bounds().Size())
	assert.Equal(t, bar.Bounds().Size(), pages[2][0].Bounds().Size())

	only, err := ExtractImages(path, "2")
	require.NoError(t, err)
	assert.Equal(t, []int{2}, SortedPages(only))
}

func TestIsPasswordError(t *testing.T) {
	assert.False(t, IsPasswordError(nil))
	assert.True(t, IsPasswordError(ErrPasswordRequired))
	assert.False(t, IsPasswordError(assert.AnError))
	assert.True(t, IsPasswordError(errorString("pdfcpu: please provide the correct password")))
	assert.True(t, IsPasswordError(errorString("file is Encrypted")))
}

type errorString string

func (e errorString) Error() string { return string(e) }

func TestCredentialsConfiguration(t *testing.T) {
	var none *Credentials
	conf := none.configuration()
	require.NotNil(t, conf)
	assert.Empty(t, conf.UserPW)

	conf = (&Credentials{UserPassword: "u", OwnerPassword: "o"}).configuration()
	assert.Equal(t, "u", conf.UserPW)
	assert.Equal(t, "o", conf.OwnerPW)
}
