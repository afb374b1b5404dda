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
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/naqvis/oleembed/compression"
	"github.com/naqvis/oleembed/ole"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

const (
	envPrefix = "oletool"

	compressionLevelKey = "compression_level"
	cacheSizeKey        = "cache_size"
	logLevelKey         = "log_level"

	compressionLevelFlag = "compression-level"
	cacheSizeFlag        = "cache-size"
	logLevelFlag         = "log-level"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "oletool",
	Short: "Inspect and edit OLE compound files",
	Long: `oletool walks OLE2 compound documents and manages the compressed
sub-streams an embedding host stores inside them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.SetOut(os.Stdout)
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (default is $HOME/.config/oletool.yaml)")
	flags.String(logLevelFlag, "warn", "log level (debug, info, warn, error)")
	flags.Int(compressionLevelFlag, compression.DefaultLevel, "deflate level of written sub-streams")
	flags.Int(cacheSizeFlag, ole.DefaultCacheSize, "number of decoded sub-streams kept in memory")

	bindFlags(flags, map[string]string{
		logLevelKey:         logLevelFlag,
		compressionLevelKey: compressionLevelFlag,
		cacheSizeKey:        cacheSizeFlag,
	})

	rootCmd.AddCommand(
		dumpCmd,
		rewriteCmd,
		listCmd,
		getCmd,
		insertCmd,
		removeCmd,
	)
}

func bindFlags(flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		_ = viper.BindPFlag(key, flags.Lookup(name))
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			exitOnErr(errors.Wrapf(err, "read config %s", cfgFile))
		}
		return
	}

	home, err := homedir.Dir()
	if err != nil {
		return
	}
	viper.AddConfigPath(home)
	viper.SetConfigName(".config/oletool")
	// the default config is optional
	_ = viper.ReadInConfig()
}

func newLogger() (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(viper.GetString(logLevelKey))
	if err != nil {
		return nil, errors.Wrap(err, "invalid log level")
	}
	c := zap.NewProductionConfig()
	c.Level = lvl
	c.Sampling = nil
	if term.IsTerminal(int(os.Stderr.Fd())) {
		c.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		c.EncoderConfig.EncodeTime = func(_ time.Time, _ zapcore.PrimitiveArrayEncoder) {}
	}
	return c.Build()
}

func newHandler(log *zap.Logger) (*ole.Handler, error) {
	return ole.New(
		ole.WithLogger(log),
		ole.WithCompressionLevel(viper.GetInt(compressionLevelKey)),
		ole.WithCacheSize(viper.GetInt(cacheSizeKey)),
	)
}

func exitOnErr(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func main() {
	exitOnErr(rootCmd.Execute())
}
