package fetcher

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRequest struct {
	MinScore int `json:"min_score"`
}

func TestDecodeJSONArray_InvalidFormat(t *testing.T) {
	ch, errCh := DecodeJSONArray[testRequest](context.Background(), strings.NewReader(`{"min_score":1}`))
	for range ch { //nolint:revive // drain
	}

	var gotErr error
	for err := range errCh {
		if err != nil {
			gotErr = err
		}
	}
	require.Error(t, gotErr)
	assert.Contains(t, gotErr.Error(), "expected '['")
}

func TestDecodeJSONArray_EmptyInput(t *testing.T) {
	ch, errCh := DecodeJSONArray[testRequest](context.Background(), strings.NewReader(""))
	var got []testRequest
	for v := range ch {
		got = append(got, v)
	}
	for err := range errCh {
		require.NoError(t, err)
	}
	assert.Empty(t, got)
}

func TestDecodeJSONObject(t *testing.T) {
	req, err := DecodeJSONObject[testRequest](strings.NewReader(`{"min_score":70}`))
	require.NoError(t, err)
	assert.Equal(t, 70, req.MinScore)

	_, err = DecodeJSONObject[testRequest](strings.NewReader(`not json`))
	require.Error(t, err)
}
