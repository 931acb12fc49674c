package compress

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestForPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"timestamps.bin", "none"},
		{"timestamps.txt", "none"},
		{"timestamps.bin.zst", "zst"},
		{"timestamps.txt.lz4", "lz4"},
		{"capture.s2", "s2"},
		{"noext", "none"},
		{"", "none"},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, ForPath(tt.path).Name(), "path %q", tt.path)
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("1234567890,3\n"), 4096)

	for _, codec := range []Codec{NoOpCodec{}, ZstdCodec{}, LZ4Codec{}, S2Codec{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			var buf bytes.Buffer

			w, err := codec.WrapWriter(&buf)
			require.NoError(t, err)

			// Write in small chunks like the streaming writer does.
			for off := 0; off < len(payload); off += 1024 {
				end := min(off+1024, len(payload))
				_, err := w.Write(payload[off:end])
				require.NoError(t, err)
			}
			require.NoError(t, w.Close())

			r, err := codec.WrapReader(&buf)
			require.NoError(t, err)
			got, err := io.ReadAll(r)
			require.NoError(t, err)
			require.NoError(t, r.Close())

			require.Equal(t, payload, got)
		})
	}
}

func TestCodec_CompressesRepetitiveData(t *testing.T) {
	payload := bytes.Repeat([]byte("1000000000,1\n"), 8192)

	for _, codec := range []Codec{ZstdCodec{}, LZ4Codec{}, S2Codec{}} {
		var buf bytes.Buffer
		w, err := codec.WrapWriter(&buf)
		require.NoError(t, err)
		_, err = w.Write(payload)
		require.NoError(t, err)
		require.NoError(t, w.Close())

		require.Less(t, buf.Len(), len(payload)/4, "codec %s", codec.Name())
	}
}
