package instruction

import (
	"github.com/code-payments/code-instruction-server/pkg/config"
	"github.com/code-payments/code-instruction-server/pkg/config/env"
	"github.com/code-payments/code-instruction-server/pkg/config/memory"
	"github.com/code-payments/code-instruction-server/pkg/config/wrapper"
)

const (
	envConfigPrefix = "INSTRUCTION_SERVICE_"

	UseHttpErrorStatusConfigEnvName = envConfigPrefix + "USE_HTTP_ERROR_STATUS"
	defaultUseHttpErrorStatus       = false

	MaxRequestBodyBytesConfigEnvName = envConfigPrefix + "MAX_REQUEST_BODY_BYTES"
	defaultMaxRequestBodyBytes       = 64 * 1024
)

type conf struct {
	useHttpErrorStatus  config.Bool
	maxRequestBodyBytes config.Int64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			useHttpErrorStatus:  env.NewBoolConfig(UseHttpErrorStatusConfigEnvName, defaultUseHttpErrorStatus),
			maxRequestBodyBytes: env.NewInt64Config(MaxRequestBodyBytesConfigEnvName, defaultMaxRequestBodyBytes),
		}
	}
}

type testOverrides struct {
	useHttpErrorStatus  bool
	maxRequestBodyBytes int64
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	maxRequestBodyBytes := overrides.maxRequestBodyBytes
	if maxRequestBodyBytes == 0 {
		maxRequestBodyBytes = defaultMaxRequestBodyBytes
	}

	return func() *conf {
		return &conf{
			useHttpErrorStatus:  wrapper.NewBoolConfig(memory.NewConfig(overrides.useHttpErrorStatus), defaultUseHttpErrorStatus),
			maxRequestBodyBytes: wrapper.NewInt64Config(memory.NewConfig(maxRequestBodyBytes), defaultMaxRequestBodyBytes),
		}
	}
}
