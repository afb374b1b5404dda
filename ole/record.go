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
	"encoding/binary"
	"io"
	"math"

	"github.com/naqvis/oleembed/compression"
	"github.com/pkg/errors"
)

// LengthPrefixSize is the size of the uncompressed length heading every
// sub-stream record.
const LengthPrefixSize = 4

// PutUint32LE stores v into the first 4 bytes of b.
func PutUint32LE(b []byte, v uint32) {
	binary.LittleEndian.PutUint32(b, v)
}

// Uint32LE reads the first 4 bytes of b.
func Uint32LE(b []byte) uint32 {
	return binary.LittleEndian.Uint32(b)
}

// EncodeRecord builds the stored form of a sub-stream: the length of data
// followed by data deflated with c.
func EncodeRecord(c *compression.Config, data []byte) ([]byte, error) {
	if len(data) > math.MaxInt32 {
		return nil, errors.Errorf("payload of %d bytes does not fit the length prefix", len(data))
	}
	compressed, err := c.Compress(data)
	if err != nil {
		return nil, err
	}
	record := make([]byte, LengthPrefixSize, LengthPrefixSize+len(compressed))
	PutUint32LE(record, uint32(len(data)))
	return append(record, compressed...), nil
}

// DecodeRecord is the inverse of EncodeRecord.
func DecodeRecord(c *compression.Config, record []byte) ([]byte, error) {
	return readRecord(c, bytes.NewReader(record))
}

// readRecord reads the length prefix and treats everything after it as
// the compressed payload.
func readRecord(c *compression.Config, r io.Reader) ([]byte, error) {
	var prefix [LengthPrefixSize]byte
	if n, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, errors.Wrapf(ErrShortLength, "%d bytes available", n)
	}
	oleLength := int32(Uint32LE(prefix[:]))
	if oleLength < 0 {
		return nil, errors.Wrapf(ErrNegativeLength, "%d", oleLength)
	}

	compressed, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read payload")
	}
	data, err := c.Decompress(compressed, int(oleLength))
	if err != nil {
		return nil, errors.Wrap(ErrLengthMismatch, err.Error())
	}
	return data, nil
}
