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
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

const tempPattern = "ole-*.tmp"

// tempStream is a seekable scratch file. Whoever creates one releases it.
type tempStream struct {
	afero.File
	fs afero.Fs
}

func newTempStream(fs afero.Fs) (*tempStream, error) {
	f, err := afero.TempFile(fs, "", tempPattern)
	if err != nil {
		return nil, errors.Wrap(err, "create temporary stream")
	}
	return &tempStream{File: f, fs: fs}, nil
}

// newTempStreamWith creates a temporary stream holding data, positioned at
// its start.
func newTempStreamWith(fs afero.Fs, data []byte) (*tempStream, error) {
	ts, err := newTempStream(fs)
	if err != nil {
		return nil, err
	}
	if err := ts.Reset(data); err != nil {
		_ = ts.Release()
		return nil, err
	}
	return ts, nil
}

// Reset replaces the whole content with data and rewinds.
func (ts *tempStream) Reset(data []byte) error {
	if err := ts.Rewind(); err != nil {
		return err
	}
	if err := ts.Truncate(0); err != nil {
		return errors.Wrap(err, "truncate temporary stream")
	}
	if _, err := ts.Write(data); err != nil {
		return errors.Wrap(err, "write temporary stream")
	}
	return ts.Rewind()
}

func (ts *tempStream) Rewind() error {
	if _, err := ts.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(err, "seek temporary stream")
	}
	return nil
}

// Bytes reads the whole stream from its start.
func (ts *tempStream) Bytes() ([]byte, error) {
	if err := ts.Rewind(); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(ts)
	if err != nil {
		return nil, errors.Wrap(err, "read temporary stream")
	}
	return data, nil
}

func (ts *tempStream) Size() (int64, error) {
	fi, err := ts.Stat()
	if err != nil {
		return 0, errors.Wrap(err, "stat temporary stream")
	}
	return fi.Size(), nil
}

// Release closes and removes the underlying file.
func (ts *tempStream) Release() error {
	name := ts.Name()
	closeErr := ts.Close()
	if err := ts.fs.Remove(name); err != nil {
		return errors.Wrap(err, "remove temporary stream")
	}
	return closeErr
}
