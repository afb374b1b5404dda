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

package ole

import (
	"bytes"
	"testing"

	"github.com/naqvis/oleembed/compression"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func newCompression(t *testing.T) *compression.Config {
	c := &compression.Config{Level: compression.DefaultLevel}
	require.NoError(t, c.Init())
	return c
}

func TestUint32LE(t *testing.T) {
	b := make([]byte, 4)
	PutUint32LE(b, 0x01020304)
	require.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, b)
	require.Equal(t, uint32(0x01020304), Uint32LE(b))

	PutUint32LE(b, 0xFFFFFFFF)
	require.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF}, b)
	require.Equal(t, uint32(0xFFFFFFFF), Uint32LE(b))
}

func TestRecord(t *testing.T) {
	c := newCompression(t)

	for _, data := range [][]byte{
		{},
		[]byte("x"),
		[]byte("HELLO WORLD"),
		bytes.Repeat([]byte{0}, 100000),
	} {
		record, err := EncodeRecord(c, data)
		require.NoError(t, err)
		require.Equal(t, uint32(len(data)), Uint32LE(record))

		res, err := DecodeRecord(c, record)
		require.NoError(t, err)
		require.Equal(t, data, res)
	}
}

func TestDecodeRecordErrors(t *testing.T) {
	c := newCompression(t)

	t.Run("short", func(t *testing.T) {
		for _, record := range [][]byte{nil, {1}, {1, 2, 3}} {
			_, err := DecodeRecord(c, record)
			require.True(t, errors.Is(err, ErrShortLength))
		}
	})
	t.Run("negative", func(t *testing.T) {
		_, err := DecodeRecord(c, []byte{0x00, 0x00, 0x00, 0x80, 0x01})
		require.True(t, errors.Is(err, ErrNegativeLength))
	})
	t.Run("mismatch", func(t *testing.T) {
		record, err := EncodeRecord(c, []byte("HELLO WORLD"))
		require.NoError(t, err)

		PutUint32LE(record, 100)
		_, err = DecodeRecord(c, record)
		require.True(t, errors.Is(err, ErrLengthMismatch))

		PutUint32LE(record, 5)
		_, err = DecodeRecord(c, record)
		require.True(t, errors.Is(err, ErrLengthMismatch))
	})
	t.Run("garbage payload", func(t *testing.T) {
		_, err := DecodeRecord(c, []byte{0x05, 0x00, 0x00, 0x00, 0xFF, 0xFF})
		require.True(t, errors.Is(err, ErrLengthMismatch))
	})
}

func TestSentinel(t *testing.T) {
	require.Equal(t, "Not Found:", Sentinel(errors.Wrap(ErrNotFound, "x")))
	require.Equal(t, "Can not read the length.", Sentinel(errors.Wrap(ErrShortLength, "x")))
	require.Equal(t, "invalid oleLength", Sentinel(errors.Wrap(ErrNegativeLength, "x")))
	require.Equal(t, "oleLength", Sentinel(errors.Wrap(ErrLengthMismatch, "x")))
	require.Equal(t, "Not Found:", Sentinel(errors.New("other")))

	for _, s := range []string{SentinelNotFound, SentinelShortLength, SentinelNegativeLength, SentinelLengthMismatch} {
		require.True(t, IsSentinel(s))
	}
	require.False(t, IsSentinel("SEVMTE8="))
}
