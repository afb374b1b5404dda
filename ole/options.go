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
	"github.com/naqvis/oleembed/compression"
	"github.com/naqvis/oleembed/poifs"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// DefaultCacheSize is the number of decoded sub-streams kept by default.
const DefaultCacheSize = 16

type cfg struct {
	log          *zap.Logger
	level        int
	cacheSize    int
	tempFs       afero.Fs
	bigBlockSize poifs.BigBlockSize
}

// Option is an option of Handler constructor.
type Option func(*cfg)

func defaultCfg() *cfg {
	return &cfg{
		log:          zap.NewNop(),
		level:        compression.DefaultLevel,
		cacheSize:    DefaultCacheSize,
		bigBlockSize: poifs.SmallerBigBlockSizeDetails,
	}
}

// WithLogger returns an option to specify logger.
func WithLogger(v *zap.Logger) Option {
	return func(c *cfg) {
		c.log = v
	}
}

// WithCompressionLevel returns an option to set the deflate level of
// written sub-streams.
func WithCompressionLevel(v int) Option {
	return func(c *cfg) {
		c.level = v
	}
}

// WithCacheSize returns an option to set the number of decoded
// sub-streams kept in memory. Zero disables caching.
func WithCacheSize(v int) Option {
	return func(c *cfg) {
		c.cacheSize = v
	}
}

// WithTempFs returns an option to specify where temporary streams live.
// Every handler gets its own in-memory file system by default.
func WithTempFs(v afero.Fs) Option {
	return func(c *cfg) {
		c.tempFs = v
	}
}

// WithBigBlockSize returns an option to choose the sector size of
// containers the handler creates from scratch.
func WithBigBlockSize(v poifs.BigBlockSize) Option {
	return func(c *cfg) {
		c.bigBlockSize = v
	}
}
