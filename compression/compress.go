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

// Package compression wraps raw deflate: no zlib or gzip framing.
package compression

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/pkg/errors"
)

// DefaultLevel is the level embedded OLE streams are written with.
const DefaultLevel = 3

var (
	ErrInvalidLevel = errors.New("invalid compression level")
	ErrSizeMismatch = errors.New("inflated size does not match expected size")
)

// Config represents common compression-related configuration.
type Config struct {
	Level int

	initialized bool
}

// Init checks the configured level. It must be called before Compress.
func (c *Config) Init() error {
	if c.Level < flate.HuffmanOnly || c.Level > flate.BestCompression {
		return errors.Wrapf(ErrInvalidLevel, "%d, expected %d..%d",
			c.Level, flate.HuffmanOnly, flate.BestCompression)
	}
	c.initialized = true
	return nil
}

// Compress deflates data at the configured level.
func (c *Config) Compress(data []byte) ([]byte, error) {
	if !c.initialized {
		return nil, errors.New("compression config is not initialized")
	}
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, c.Level)
	if err != nil {
		return nil, errors.Wrap(err, "create deflate writer")
	}
	if _, err := w.Write(data); err != nil {
		return nil, errors.Wrap(err, "deflate")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "deflate")
	}
	return buf.Bytes(), nil
}

// Decompress inflates data which must expand to exactly size bytes.
// At most size+1 bytes are produced, so a corrupt size cannot force a
// large allocation.
func (c *Config) Decompress(data []byte, size int) ([]byte, error) {
	if size < 0 {
		return nil, errors.Wrapf(ErrSizeMismatch, "negative size %d", size)
	}
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()

	res, err := io.ReadAll(io.LimitReader(r, int64(size)+1))
	if err != nil {
		return nil, errors.Wrap(err, "inflate")
	}
	if len(res) != size {
		return nil, errors.Wrapf(ErrSizeMismatch, "%d bytes inflated, %d expected", len(res), size)
	}
	return res, nil
}
