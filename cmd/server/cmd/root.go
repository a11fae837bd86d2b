package cmd

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Brownie44l1/rop-api/internal/config"
	logger "github.com/Brownie44l1/rop-api/internal/logger"
	"github.com/Brownie44l1/rop-api/internal/model"
	"github.com/Brownie44l1/rop-api/internal/server"
	"github.com/Brownie44l1/rop-api/version"
)

const (
	// envPrefix is the environment prefix for viper, like: ROP_SERVER_PORT.
	envPrefix = "rop"

	// defaultConfigFile is read when present and --config is not given.
	defaultConfigFile = "config/rop-server.yaml"
)

var ropViper = viper.New()

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "rop-server",
	Short: "the ROP classifier api server",
	Long: `rop-server loads a retinopathy of prematurity classification model once at startup
and serves predictions over http. The process exits when the model cannot be loaded.`,
	Args:              cobra.NoArgs,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Load .env into the process environment.
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return errors.Wrap(err, "load .env")
		}

		// Load config file into viper.
		if err := readConfigFile(ropViper, cmd); err != nil {
			return errors.Wrap(err, "read config file")
		}

		cfg, err := getConfigFromViper(ropViper)
		if err != nil {
			return errors.Wrap(err, "get config from viper")
		}

		// Convert config.
		if err := cfg.Convert(); err != nil {
			return err
		}

		// Validate config.
		if err := cfg.Validate(); err != nil {
			return err
		}

		// Initialize logger.
		if err := logger.InitServer(cfg.Log.Verbose, cfg.Log.Console, cfg.Log.Dir, logger.LogRotateConfig{
			MaxSize:    cfg.Log.MaxSize,
			MaxAge:     cfg.Log.MaxAge,
			MaxBackups: cfg.Log.MaxBackups,
		}); err != nil {
			return errors.Wrap(err, "init server logger")
		}
		defer logger.Sync()

		return runServer(cfg)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}

func init() {
	setupFlags(rootCmd)
	rootCmd.AddCommand(VersionCmd)
}

// setupFlags setups flags for command line.
func setupFlags(cmd *cobra.Command) {
	defaultConfig := config.New()
	flagSet := cmd.Flags()

	flagSet.String("config", defaultConfigFile, "the path of rop-server configuration file")
	flagSet.String("host", defaultConfig.Server.Host, "listen host of the api server")
	flagSet.Int("port", defaultConfig.Server.Port, "listen port of the api server")
	flagSet.String("allowed-origin", defaultConfig.Server.AllowedOrigin, "the only origin allowed for browser callers")
	flagSet.String("max-upload-size", defaultConfig.Server.MaxUploadSize, "upper bound of an uploaded image, like: 10MB")
	flagSet.String("model", defaultConfig.Model.Path, "path of the onnx model file")
	flagSet.String("ort-lib", defaultConfig.Model.SharedLibraryPath, "path of the onnxruntime shared library")
	flagSet.BoolP("verbose", "v", defaultConfig.Log.Verbose, "switch log level to DEBUG mode")
	flagSet.Bool("console", defaultConfig.Log.Console, "write logs to stdout instead of files")
	flagSet.String("log-dir", defaultConfig.Log.Dir, "directory of log files")
	flagSet.Bool("metrics", defaultConfig.Metrics.Enable, "enable the metrics server")
	flagSet.String("metrics-addr", defaultConfig.Metrics.Addr, "listen address of the metrics server")
	flagSet.String("jaeger", defaultConfig.Telemetry.Jaeger, "jaeger collector endpoint, like: http://localhost:14268/api/traces")
	flagSet.Bool("profiler", defaultConfig.Profiler, "enable pprof and statsview on a free local port")

	if err := bindRootFlags(ropViper, cmd); err != nil {
		panic(errors.Wrap(err, "bind root command flags"))
	}
}

// bindRootFlags binds flags on cmd to the given viper instance.
func bindRootFlags(v *viper.Viper, cmd *cobra.Command) error {
	flags := []struct {
		key  string
		flag string
	}{
		{
			key:  "config",
			flag: "config",
		}, {
			key:  "server.host",
			flag: "host",
		}, {
			key:  "server.port",
			flag: "port",
		}, {
			key:  "server.allowedOrigin",
			flag: "allowed-origin",
		}, {
			key:  "server.maxUploadSize",
			flag: "max-upload-size",
		}, {
			key:  "model.path",
			flag: "model",
		}, {
			key:  "model.sharedLibraryPath",
			flag: "ort-lib",
		}, {
			key:  "log.verbose",
			flag: "verbose",
		}, {
			key:  "log.console",
			flag: "console",
		}, {
			key:  "log.dir",
			flag: "log-dir",
		}, {
			key:  "metrics.enable",
			flag: "metrics",
		}, {
			key:  "metrics.addr",
			flag: "metrics-addr",
		}, {
			key:  "telemetry.jaeger",
			flag: "jaeger",
		}, {
			key:  "profiler",
			flag: "profiler",
		},
	}

	for _, f := range flags {
		if err := v.BindPFlag(f.key, cmd.Flag(f.flag)); err != nil {
			return err
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return nil
}

// readConfigFile reads defaults and then the config file into the given viper instance.
// A missing default config file is ignored.
func readConfigFile(v *viper.Viper, cmd *cobra.Command) error {
	defaults, err := yaml.Marshal(config.New())
	if err != nil {
		return err
	}

	// Every key is known to viper so environment variables can override it.
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return err
	}

	v.SetConfigFile(v.GetString("config"))
	if err := v.MergeInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !cmd.Flag("config").Changed {
			return nil
		}
		return err
	}

	logger.Infof("load config file %s", v.ConfigFileUsed())
	return nil
}

// getConfigFromViper returns config from the given viper instance.
func getConfigFromViper(v *viper.Viper) (*config.Config, error) {
	cfg := config.New()
	if err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			decodeWithYAML(reflect.TypeOf(time.Second)),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, errors.Wrap(err, "unmarshal yaml")
	}

	return cfg, nil
}

// decodeWithYAML returns a mapstructure.DecodeHookFunc to decode the given
// types by unmarshalling from yaml text.
func decodeWithYAML(types ...reflect.Type) mapstructure.DecodeHookFunc {
	return func(f, t reflect.Type, data any) (any, error) {
		for _, typ := range types {
			if t == typ {
				b, _ := yaml.Marshal(data)
				v := reflect.New(t)
				return v.Interface(), yaml.Unmarshal(b, v.Interface())
			}
		}
		return data, nil
	}
}

func runServer(cfg *config.Config) error {
	logger.Infof("version:\n%s", version.Version())

	ff := initMonitor(cfg.Profiler, cfg.Telemetry)
	defer ff()

	svr, err := server.New(cfg, model.LoadONNX)
	if err != nil {
		logger.Errorf("api cannot start without model: %v", err)
		return err
	}

	return serve(svr, cfg.Server.ShutdownTimeout)
}

// serve blocks until svr is stopped by a quit signal. When serving fails the
// server is stopped before returning so the model and metrics server are released.
func serve(svr *server.Server, shutdownTimeout time.Duration) error {
	stop := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return svr.Stop(ctx)
	}

	stopped := make(chan error, 1)
	setupQuitSignalHandler(func() {
		stopped <- stop()
	})

	if err := svr.Serve(); err != nil {
		if serr := stop(); serr != nil {
			logger.Errorf("stop server failed: %v", serr)
		}
		return err
	}

	return <-stopped
}
