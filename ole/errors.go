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

import "github.com/pkg/errors"

var (
	// ErrNotFound is returned when there is no container or it has no
	// sub-stream by the requested name.
	ErrNotFound = errors.New("sub-stream not found")
	// ErrShortLength is returned when a record is shorter than its
	// 4 byte length prefix.
	ErrShortLength = errors.New("can not read the length")
	// ErrNegativeLength is returned when the length prefix has its top bit set.
	ErrNegativeLength = errors.New("invalid length prefix")
	// ErrLengthMismatch is returned when the payload does not inflate to
	// exactly the declared length.
	ErrLengthMismatch = errors.New("payload does not match length prefix")
)

// Strings Get returns in place of a payload.
const (
	SentinelNotFound       = "Not Found:"
	SentinelShortLength    = "Can not read the length."
	SentinelNegativeLength = "invalid oleLength"
	SentinelLengthMismatch = "oleLength"
)

// Sentinel maps a Lookup error to the string Get reports for it.
// Unknown errors read as a missing sub-stream.
func Sentinel(err error) string {
	switch {
	case errors.Is(err, ErrShortLength):
		return SentinelShortLength
	case errors.Is(err, ErrNegativeLength):
		return SentinelNegativeLength
	case errors.Is(err, ErrLengthMismatch):
		return SentinelLengthMismatch
	default:
		return SentinelNotFound
	}
}

// IsSentinel reports whether s is one of the strings Get uses to signal
// failure. None of them is valid base64.
func IsSentinel(s string) bool {
	switch s {
	case SentinelNotFound, SentinelShortLength, SentinelNegativeLength, SentinelLengthMismatch:
		return true
	}
	return false
}
