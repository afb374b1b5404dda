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
	"bytes"
	"io"
	"os"
	"strconv"

	"github.com/naqvis/oleembed/ole"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	getRaw    bool
	listTable bool
)

var listCmd = &cobra.Command{
	Use:   "list FILE",
	Short: "List the sub-streams of a container",
	Args:  cobra.ExactArgs(1),
	RunE:  listFunc,
}

var getCmd = &cobra.Command{
	Use:   "get FILE NAME",
	Short: "Print a sub-stream",
	Long: `Print a sub-stream as base64, or decoded with --raw. The name
` + ole.ReservedName + ` prints the whole container.`,
	Args: cobra.ExactArgs(2),
	RunE: getFunc,
}

var insertCmd = &cobra.Command{
	Use:   "insert FILE NAME [DATA-FILE]",
	Short: "Add a sub-stream to a container",
	Long: `Add a sub-stream read from DATA-FILE, or from stdin when it is omitted.
FILE is created if it does not exist.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: insertFunc,
}

var removeCmd = &cobra.Command{
	Use:   "remove FILE NAME",
	Short: "Delete a sub-stream from a container",
	Args:  cobra.ExactArgs(2),
	RunE:  removeFunc,
}

func init() {
	listCmd.Flags().BoolVarP(&listTable, "table", "t", false, "print a table with the sub-stream state")
	getCmd.Flags().BoolVar(&getRaw, "raw", false, "write decoded bytes instead of base64")
}

// container is a handler loaded from a file on disk.
type container struct {
	*ole.Handler
	path string
	log  *zap.Logger
}

func openContainer(path string, mustExist bool) (*container, error) {
	log, err := newLogger()
	if err != nil {
		return nil, err
	}
	h, err := newHandler(log)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}
	c := &container{Handler: h, path: path, log: log}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		err = h.Put(ole.ReservedName, data)
	case errors.Is(err, os.ErrNotExist) && !mustExist:
		err = nil
	}
	if err != nil {
		c.close()
		return nil, errors.Wrapf(err, "open container %s", path)
	}
	return c, nil
}

func (c *container) save() error {
	var buf bytes.Buffer
	if _, err := c.WriteTo(&buf); err != nil {
		return err
	}
	return os.WriteFile(c.path, buf.Bytes(), 0o644)
}

func (c *container) close() {
	if err := c.Close(); err != nil {
		c.log.Warn("could not release container", zap.Error(err))
	}
	_ = c.log.Sync()
}

func listFunc(cmd *cobra.Command, args []string) error {
	c, err := openContainer(args[0], true)
	if err != nil {
		return err
	}
	defer c.close()

	var out *tablewriter.Table
	if listTable {
		cmd.Printf("State: %s\n", c.State())
		out = tablewriter.NewWriter(cmd.OutOrStdout())
		out.SetHeader([]string{"Name", "Size", "Status"})
		out.SetAutoWrapText(false)
	}

	for _, name := range c.Names() {
		size, status := "", "ok"
		if data, err := c.Lookup(name); err != nil {
			status = ole.Sentinel(err)
		} else {
			size = strconv.Itoa(len(data))
		}

		switch {
		case out != nil:
			out.Append([]string{name, size, status})
		case status != "ok":
			cmd.Printf("%s\t%s\n", name, status)
		default:
			cmd.Printf("%s\t%s\n", name, size)
		}
	}
	if out != nil {
		out.Render()
	}
	return nil
}

func getFunc(cmd *cobra.Command, args []string) error {
	c, err := openContainer(args[0], true)
	if err != nil {
		return err
	}
	defer c.close()

	name := args[1]
	if !getRaw {
		res := c.Get(name)
		if ole.IsSentinel(res) {
			return errors.Errorf("%s %s", res, name)
		}
		cmd.Println(res)
		return nil
	}

	data, err := c.Lookup(name)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func insertFunc(cmd *cobra.Command, args []string) error {
	c, err := openContainer(args[0], false)
	if err != nil {
		return err
	}
	defer c.close()

	var data []byte
	if len(args) == 3 {
		data, err = os.ReadFile(args[2])
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return err
	}

	if err := c.Put(args[1], data); err != nil {
		return err
	}
	return c.save()
}

func removeFunc(_ *cobra.Command, args []string) error {
	c, err := openContainer(args[0], true)
	if err != nil {
		return err
	}
	defer c.close()

	if err := c.Remove(args[1]); err != nil {
		return err
	}
	return c.save()
}
