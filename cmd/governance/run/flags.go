// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package run

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
)

const (
	HTTPHostKey        = "http-host"
	HTTPPortKey        = "http-port"
	AllowedOriginsKey  = "allowed-origins"
	DataDirKey         = "data-dir"
	SpaceConfigKey     = "space-config"
	ExecutorConfigKey  = "executor-config"
	ShutdownTimeoutKey = "shutdown-timeout"
)

var (
	errMissingSpaceConfig    = errors.New("missing settlement chain config")
	errMissingExecutorConfig = errors.New("missing anchor chain config")
)

func AddFlags(flags *pflag.FlagSet) {
	flags.String(HTTPHostKey, "127.0.0.1", "Address the API server listens on")
	flags.Uint16(HTTPPortKey, 9650, "Port the API server listens on")
	flags.StringSlice(AllowedOriginsKey, []string{"*"}, "Origins allowed to make cross-origin API calls")
	flags.String(DataDirKey, "", "Directory of the chain databases. Chain state is kept in memory if empty")
	flags.String(SpaceConfigKey, "", "Path to the settlement chain JSON config (required)")
	flags.String(ExecutorConfigKey, "", "Path to the anchor chain JSON config (required)")
	flags.Duration(ShutdownTimeoutKey, 10*time.Second, "Time allowed for in-flight API calls on shutdown")
}

type Config struct {
	HTTPHost        string
	HTTPPort        uint16
	AllowedOrigins  []string
	DataDir         string
	SpaceConfig     []byte
	ExecutorConfig  []byte
	ShutdownTimeout time.Duration
}

func ParseFlags(flags *pflag.FlagSet, args []string) (*Config, error) {
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	host, err := flags.GetString(HTTPHostKey)
	if err != nil {
		return nil, err
	}

	port, err := flags.GetUint16(HTTPPortKey)
	if err != nil {
		return nil, err
	}

	origins, err := flags.GetStringSlice(AllowedOriginsKey)
	if err != nil {
		return nil, err
	}

	dataDir, err := flags.GetString(DataDirKey)
	if err != nil {
		return nil, err
	}

	spaceConfig, err := readConfig(flags, SpaceConfigKey, errMissingSpaceConfig)
	if err != nil {
		return nil, err
	}

	executorConfig, err := readConfig(flags, ExecutorConfigKey, errMissingExecutorConfig)
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := flags.GetDuration(ShutdownTimeoutKey)
	if err != nil {
		return nil, err
	}

	return &Config{
		HTTPHost:        host,
		HTTPPort:        port,
		AllowedOrigins:  origins,
		DataDir:         dataDir,
		SpaceConfig:     spaceConfig,
		ExecutorConfig:  executorConfig,
		ShutdownTimeout: shutdownTimeout,
	}, nil
}

func readConfig(flags *pflag.FlagSet, key string, errMissing error) ([]byte, error) {
	path, err := flags.GetString(key)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, errMissing
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("couldn't read %s: %w", key, err)
	}
	return b, nil
}
