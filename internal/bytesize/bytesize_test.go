package bytesize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Size
	}{
		{"4096", 4096},
		{"0", 0},
		{"4Ki", 4 * KiB},
		{"4KiB", 4 * KiB},
		{"50Mi", 50 * MiB},
		{"50mib", 50 * MiB},
		{"1.5Gi", GiB + 512*MiB},
		{"100MB", 100 * MB},
		{"2k", 2000},
		{" 8 B ", 8},
		{"1Ti", TiB},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, in := range []string{"", "  ", "abc", "-1", "10XB", "1.2.3Mi"} {
		_, err := Parse(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestUnmarshalText(t *testing.T) {
	var s Size
	require.NoError(t, s.UnmarshalText([]byte("64Ki")))
	assert.Equal(t, 64*KiB, s)
	assert.Error(t, s.UnmarshalText([]byte("lots")))
	assert.Equal(t, 64*KiB, s, "failed unmarshal must not modify the value")
}

func TestElements(t *testing.T) {
	assert.Equal(t, int64(512), (4 * KiB).Elements())
	assert.Equal(t, int64(50*1024*1024/8), (50 * MiB).Elements())
	assert.Equal(t, int64(1), Size(15).Elements())
}

func TestString(t *testing.T) {
	assert.Equal(t, "4Ki", (4 * KiB).String())
	assert.Equal(t, "50Mi", (50 * MiB).String())
	assert.Equal(t, "2Gi", (2 * GiB).String())
	assert.Equal(t, "1000", KB.String())
	assert.Equal(t, "1536", Size(1536).String())

	// String output parses back to the same size
	for _, s := range []Size{0, 7, 4 * KiB, 3 * MiB, 5 * TiB} {
		got, err := Parse(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
}
