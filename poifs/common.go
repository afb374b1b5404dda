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

package poifs

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// BigBlockSize describes the sector size of a compound file.
type BigBlockSize struct {
	Size  int
	Shift uint16
}

func NewBigBlockSize(size int, shift uint16) BigBlockSize {
	return BigBlockSize{Size: size, Shift: shift}
}

func bigBlockSizeFromShift(shift uint16) (BigBlockSize, error) {
	switch shift {
	case SmallerBigBlockSizeDetails.Shift:
		return SmallerBigBlockSizeDetails, nil
	case LargerBigBlockSizeDetails.Shift:
		return LargerBigBlockSizeDetails, nil
	}
	return BigBlockSize{}, errors.Wrapf(ErrUnsupportedBlockSize,
		"2^%d, expected 2^9 or 2^12", shift)
}

func (b BigBlockSize) PropertiesPerBlock() int {
	return b.Size / PropertySize
}

func (b BigBlockSize) BATEntriesPerBlock() int {
	return b.Size / IntSize
}

func (b BigBlockSize) XBATEntriesPerBlock() int {
	return b.BATEntriesPerBlock() - 1
}

func (b BigBlockSize) NextXBATChainOffset() int {
	return b.XBATEntriesPerBlock() * IntSize
}

func (b BigBlockSize) SmallBlocksPerBigBlock() int {
	return b.Size / SmallBlockSize
}

// getInt reads a signed little-endian int32, so that special sector
// numbers come back as their negative constants.
func getInt(data []byte, offset int) int {
	return int(int32(binary.LittleEndian.Uint32(data[offset:])))
}

func putInt(data []byte, offset, value int) {
	binary.LittleEndian.PutUint32(data[offset:], uint32(int32(value)))
}

func getShort(data []byte, offset int) uint16 {
	return binary.LittleEndian.Uint16(data[offset:])
}

func putShort(data []byte, offset int, value uint16) {
	binary.LittleEndian.PutUint16(data[offset:], value)
}

func blocksNeeded(size, blockSize int) int {
	return (size + blockSize - 1) / blockSize
}

func fill(data []byte, val byte) {
	for i := range data {
		data[i] = val
	}
}

func isSmall(length int) bool {
	return length < BigBlockMinimumDocumentSize
}

type stack []int

func (s *stack) push(x int) {
	*s = append(*s, x)
}

func (s *stack) pop() int {
	old := *s
	x := old[len(old)-1]
	*s = old[:len(old)-1]
	return x
}

func (s stack) isEmpty() bool {
	return len(s) == 0
}
