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

package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/naqvis/oleembed/poifs"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	dumpToScreen bool
	dumpDir      string
)

var dumpCmd = &cobra.Command{
	Use:   "dump FILE",
	Short: "Extract every document of a compound file",
	Long: `Recreate the directory tree of a compound file on disk, one file per
document. With -s the tree is only printed.`,
	Args: cobra.ExactArgs(1),
	RunE: dumpFunc,
}

func init() {
	dumpCmd.Flags().BoolVarP(&dumpToScreen, "screen", "s", false, "dump contents to screen")
	dumpCmd.Flags().StringVarP(&dumpDir, "out", "o", ".", "directory to extract into")
}

func openFileSystem(path string, log *zap.Logger) (*poifs.FileSystem, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	fs, err := poifs.FileSystemFromReader(file, poifs.WithLogger(log))
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return fs, nil
}

func dumpFunc(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	fs, err := openFileSystem(args[0], log)
	if err != nil {
		return err
	}
	root := fs.Root()
	if dumpToScreen {
		return dumpScreen(cmd, root, root.Name())
	}

	path, err := entryPath(dumpDir, root.Name())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return err
	}
	return dump(root, path)
}

// printableName drops surrounding blanks and the control character some
// writers put in front of reserved names, such as "\x01CompObj". Path
// separators are replaced so that a name is always a single path element.
func printableName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimLeftFunc(name, func(r rune) bool { return !unicode.IsPrint(r) })
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == filepath.Separator {
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		return "_"
	}
	return name
}

// entryPath joins parent with the printable form of name and fails if the
// result is not inside parent.
func entryPath(parent, name string) (string, error) {
	path := filepath.Join(parent, printableName(name))
	rel, err := filepath.Rel(parent, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Errorf("entry %q escapes %s", name, parent)
	}
	return path, nil
}

func readAll(node *poifs.DocumentNode) ([]byte, error) {
	is := node.Open()
	defer is.Close()
	data := make([]byte, node.Size())
	if _, err := io.ReadFull(is, data); err != nil {
		return nil, errors.Wrapf(err, "read %q", node.Name())
	}
	return data, nil
}

func dump(dir *poifs.DirectoryNode, parent string) error {
	for _, entry := range dir.Entries() {
		fileName, err := entryPath(parent, entry.Name())
		if err != nil {
			return err
		}
		switch node := entry.(type) {
		case *poifs.DocumentNode:
			data, err := readAll(node)
			if err != nil {
				return err
			}
			if err := os.WriteFile(fileName, data, 0o644); err != nil {
				return err
			}
		case *poifs.DirectoryNode:
			if err := os.MkdirAll(fileName, 0o755); err != nil {
				return err
			}
			if err := dump(node, fileName); err != nil {
				return err
			}
		}
	}
	return nil
}

func dumpScreen(cmd *cobra.Command, dir *poifs.DirectoryNode, parent string) error {
	for _, entry := range dir.Entries() {
		fileName := parent + "/" + strings.TrimSpace(entry.Name())
		switch node := entry.(type) {
		case *poifs.DocumentNode:
			if _, err := readAll(node); err != nil {
				return err
			}
			cmd.Printf("Reading Doc: %s (%d bytes)\n", fileName, node.Size())
		case *poifs.DirectoryNode:
			if clsid := node.StorageClsid(); !clsid.IsZero() {
				cmd.Printf("Making folder: %s %s\n", fileName, clsid)
			} else {
				cmd.Printf("Making folder: %s\n", fileName)
			}
			if err := dumpScreen(cmd, node, fileName); err != nil {
				return err
			}
		}
	}
	return nil
}
