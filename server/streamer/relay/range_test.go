package relay

import (
	"math"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveRange(t *testing.T) {
	cases := []struct {
		name   string
		size   int64
		header string
		want   Window
	}{
		{"no header", 1000, "", Window{Offset: 0, Length: 1000, Status: http.StatusOK}},
		{"blank header", 1000, "   ", Window{Offset: 0, Length: 1000, Status: http.StatusOK}},
		{"closed range", 1000, "bytes=0-99", Window{Offset: 0, Length: 100, Status: http.StatusPartialContent, Ranged: true}},
		{"open range", 1000, "bytes=500-", Window{Offset: 500, Length: 500, Status: http.StatusPartialContent, Ranged: true}},
		{"single byte", 1000, "bytes=999-999", Window{Offset: 999, Length: 1, Status: http.StatusPartialContent, Ranged: true}},
		{"full as range", 1000, "bytes=0-", Window{Offset: 0, Length: 1000, Status: http.StatusPartialContent, Ranged: true}},
		// bounds are the caller's problem
		{"past end", 1000, "bytes=900-2000", Window{Offset: 900, Length: 1101, Status: http.StatusPartialContent, Ranged: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ResolveRange(tc.size, tc.header)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestResolveRangeMalformed(t *testing.T) {
	for _, header := range []string{
		"bytes=-500",
		"bytes=0-1,5-9",
		"items=0-1",
		"bytes=abc-",
		"bytes=0-xyz",
		"bytes=100",
		"bytes=10-5",
		"bytes=5--3",
	} {
		t.Run(header, func(t *testing.T) {
			_, err := ResolveRange(1000, header)
			require.Error(t, err)
			require.True(t, MalformedRangeError.Has(err))
		})
	}
}

func TestValidateWindow(t *testing.T) {
	require.NoError(t, validateWindow(Window{Offset: 0, Length: 1000}, 1000))
	require.NoError(t, validateWindow(Window{Offset: 999, Length: 1}, 1000))

	for _, w := range []Window{
		{Offset: 10, Length: -4},
		{Offset: 900, Length: 101},
		{Offset: 1000, Length: 1},
		{Offset: -1, Length: 2},
		{Offset: 1, Length: math.MaxInt64},
		{Offset: 0, Length: math.MinInt64},
		{Offset: math.MaxInt64, Length: 1},
	} {
		err := validateWindow(w, 1000)
		require.True(t, MalformedRangeError.Has(err), "%+v", w)
	}
}

func TestWindowEnd(t *testing.T) {
	require.Equal(t, int64(99), Window{Offset: 0, Length: 100}.End())
	require.Equal(t, int64(999), Window{Offset: 500, Length: 500}.End())
}

func TestResolveRangeHugeEnd(t *testing.T) {
	for _, header := range []string{"bytes=1-9223372036854775807", "bytes=0-9223372036854775807"} {
		t.Run(header, func(t *testing.T) {
			w, err := ResolveRange(1000, header)
			if err == nil {
				err = validateWindow(w, 1000)
			}
			require.True(t, MalformedRangeError.Has(err))
		})
	}
}
