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
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
)

// ClassID is a GUID held in display byte order.
type ClassID [16]byte

// ClassIDFromBytes reads a GUID stored in the on-disk mixed-endian layout.
func ClassIDFromBytes(src []byte, offset int) ClassID {
	var cid ClassID

	// double word
	cid[0] = src[3+offset]
	cid[1] = src[2+offset]
	cid[2] = src[1+offset]
	cid[3] = src[0+offset]

	// first word
	cid[4] = src[5+offset]
	cid[5] = src[4+offset]

	// second word
	cid[6] = src[7+offset]
	cid[7] = src[6+offset]

	copy(cid[8:], src[8+offset:16+offset])
	return cid
}

// ClassIDFromString parses the "{XXXXXXXX-XXXX-XXXX-XXXX-XXXXXXXXXXXX}" form.
func ClassIDFromString(str string) (ClassID, error) {
	var res ClassID
	if len(str) < 38 {
		return res, errors.New("invalid GUID, length should be 38 chars")
	}
	parts := strings.Split(strings.Trim(str, "{}"), "-")
	if len(parts) != 5 {
		return res, errors.New("invalid GUID, expected five '-' separated groups")
	}
	raw, err := hex.DecodeString(strings.Join(parts, ""))
	if err != nil {
		return res, errors.Wrap(err, "invalid GUID")
	}
	if len(raw) != len(res) {
		return res, errors.Errorf("invalid GUID, %d bytes decoded", len(raw))
	}
	copy(res[:], raw)
	return res, nil
}

// Write stores the GUID into dst in the on-disk layout.
func (cid ClassID) Write(dst []byte, offset int) error {
	if len(dst) < offset+16 {
		return errors.New("destination must have room for at least 16 bytes")
	}

	dst[0+offset] = cid[3]
	dst[1+offset] = cid[2]
	dst[2+offset] = cid[1]
	dst[3+offset] = cid[0]

	dst[4+offset] = cid[5]
	dst[5+offset] = cid[4]

	dst[6+offset] = cid[7]
	dst[7+offset] = cid[6]

	copy(dst[8+offset:16+offset], cid[8:])
	return nil
}

func (cid ClassID) IsZero() bool {
	return cid == ClassID{}
}

func (cid ClassID) String() string {
	return strings.ToUpper("{" +
		hex.EncodeToString(cid[:4]) + "-" +
		hex.EncodeToString(cid[4:6]) + "-" +
		hex.EncodeToString(cid[6:8]) + "-" +
		hex.EncodeToString(cid[8:10]) + "-" +
		hex.EncodeToString(cid[10:16]) + "}")
}
