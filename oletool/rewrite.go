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
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	rewriteIn  string
	rewriteOut string
)

var rewriteCmd = &cobra.Command{
	Use:   "rewrite",
	Short: "Read a compound file and write it back out",
	Args:  cobra.NoArgs,
	RunE:  rewriteFunc,
}

func init() {
	rewriteCmd.Flags().StringVarP(&rewriteIn, "in", "i", "", "input file <MS Office file(.xls|.doc|.mpp...)>")
	rewriteCmd.Flags().StringVarP(&rewriteOut, "out", "o", "", "output file")
	_ = rewriteCmd.MarkFlagRequired("in")
	_ = rewriteCmd.MarkFlagRequired("out")
}

func rewriteFunc(cmd *cobra.Command, _ []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	fs, err := openFileSystem(rewriteIn, log)
	if err != nil {
		return err
	}

	out, err := os.Create(rewriteOut)
	if err != nil {
		return err
	}
	if err := fs.WriteFileSystem(out); err != nil {
		_ = out.Close()
		return errors.Wrapf(err, "write %s", rewriteOut)
	}
	if err := out.Close(); err != nil {
		return err
	}
	cmd.Println("File written successfully.")
	return nil
}
