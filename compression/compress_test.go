// Developer: Ali Naqvi
//
// This program or package and any associated files are licensed under the
// Apache License, Version 2.0 (the "License"); you may not use these files
// except in compliance with the License. You can get a copy of the License
// at: http://www.apache.org/licenses/LICENSE-2.0.
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package compression

import (
	"bytes"
	"compress/flate"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func newConfig(t *testing.T, level int) *Config {
	c := &Config{Level: level}
	require.NoError(t, c.Init())
	return c
}

func TestCompressDecompress(t *testing.T) {
	c := newConfig(t, DefaultLevel)

	for _, data := range [][]byte{
		{},
		[]byte("x"),
		[]byte("HELLO WORLD"),
		bytes.Repeat([]byte("abcdefgh"), 10000),
	} {
		compressed, err := c.Compress(data)
		require.NoError(t, err)

		res, err := c.Decompress(compressed, len(data))
		require.NoError(t, err)
		require.Equal(t, data, res)
	}
}

// The output is plain RFC 1951 data, readable by any raw inflater.
func TestRawDeflate(t *testing.T) {
	c := newConfig(t, DefaultLevel)
	data := bytes.Repeat([]byte("OLE"), 500)

	compressed, err := c.Compress(data)
	require.NoError(t, err)
	require.Less(t, len(compressed), len(data))

	res, err := io.ReadAll(flate.NewReader(bytes.NewReader(compressed)))
	require.NoError(t, err)
	require.Equal(t, data, res)
}

func TestDecompressSizeMismatch(t *testing.T) {
	c := newConfig(t, DefaultLevel)
	data := []byte("HELLO WORLD")
	compressed, err := c.Compress(data)
	require.NoError(t, err)

	_, err = c.Decompress(compressed, len(data)+1)
	require.True(t, errors.Is(err, ErrSizeMismatch))

	_, err = c.Decompress(compressed, len(data)-1)
	require.True(t, errors.Is(err, ErrSizeMismatch))

	_, err = c.Decompress(compressed, -1)
	require.True(t, errors.Is(err, ErrSizeMismatch))

	_, err = c.Decompress([]byte{0xFF, 0xFF, 0xFF}, len(data))
	require.Error(t, err)
}

func TestInit(t *testing.T) {
	for _, level := range []int{-2, -1, 0, 1, 3, 9} {
		c := &Config{Level: level}
		require.NoError(t, c.Init(), level)
	}
	for _, level := range []int{-3, 10} {
		c := &Config{Level: level}
		require.True(t, errors.Is(c.Init(), ErrInvalidLevel), level)
	}

	_, err := new(Config).Compress([]byte("data"))
	require.Error(t, err)
}
