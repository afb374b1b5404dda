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

import "github.com/pkg/errors"

var (
	ErrInvalidFileFormat    = errors.New("not a valid compound file")
	ErrOOXMLFileFormat      = errors.New("the supplied data appears to be in the Office 2007+ XML")
	ErrBIFF2FileFormat      = errors.New("the supplied data appears to be in BIFF2 format")
	ErrUnsupportedBlockSize = errors.New("unsupported block size")
	ErrCorruptChain         = errors.New("corrupt sector chain")
	ErrDuplicateName        = errors.New("duplicate entry name")
	ErrNameTooLong          = errors.New("entry name longer than 31 characters")
	ErrInvalidName          = errors.New("invalid entry name")
	ErrNoSuchEntry          = errors.New("no such entry")
	ErrNotEmpty             = errors.New("directory is not empty")
	ErrClosedStream         = errors.New("cannot perform requested operation on a closed stream")

	SmallerBigBlockSizeDetails = NewBigBlockSize(SmallerBigBlockSize, 9)
	LargerBigBlockSizeDetails  = NewBigBlockSize(LargerBigBlockSize, 12)

	// The first 4 bytes of an OOXML file, used in detection
	OOXMLFileHeader = [4]byte{0x50, 0x4B, 0x03, 0x04}
)

const (
	Signature           uint64 = 0xE11AB1A1E011CFD0
	SmallerBigBlockSize        = 0x0200
	LargerBigBlockSize         = 0x1000

	SmallBlockSize = 0x0040
	PropertySize   = 0x0080 // How big single property is

	// The minimum size of a document before it's stored using
	// Big Blocks (normal streams). Smaller documents go in the
	// Mini Stream (SBAT / Small Blocks)
	BigBlockMinimumDocumentSize = 0x1000

	// The highest sector number you're allowed, 0xFFFFFFFA
	LargestRegularSectorNumber = -6
	// Indicates the sector holds a DIFAT block (0xFFFFFFFC)
	DIFATSectorBlock = -4
	// Indicates the sector holds a FAT block (0xFFFFFFFD)
	FATSectorBlock = -3
	// Indicates the sector is the end of a chain (0xFFFFFFFE)
	EndOfChain = -2
	// Indicates the sector is not used (0xFFFFFFFF)
	UnusedBlock = -1

	// sanity limit on the number of BAT sectors a header may declare
	MaxBlockCount = 65535
)

const (
	ByteSize  = 1
	ShortSize = 2
	IntSize   = 4
	LongSize  = 8
)
