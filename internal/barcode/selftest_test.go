package barcode

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/zbargo/internal/zbar"
)

func TestSelfTestImageDecodes(t *testing.T) {
	img, err := selfTestImage()
	require.NoError(t, err)
	assert.Zero(t, img.Bounds().Dx()%4)

	c := checkBackend(context.Background(), BackendGozxing, img)
	require.NoError(t, c.Err)
	assert.Contains(t, c.Detail, selfTestPayload)
}

func TestSelfTest(t *testing.T) {
	checks := SelfTest(context.Background())
	require.Len(t, checks, 1+len(Backends()))

	assert.Equal(t, "zbar engine", checks[0].Name)
	assert.Equal(t, !zbar.Available(), checks[0].Skipped)
	for _, c := range checks {
		assert.True(t, c.OK(), "%s: %v", c.Name, c.Err)
	}
}

func TestCheckBackendUnknown(t *testing.T) {
	img, err := selfTestImage()
	require.NoError(t, err)
	c := checkBackend(context.Background(), "nope", img)
	assert.ErrorIs(t, c.Err, ErrUnknownBackend)
	assert.False(t, c.OK())
}
