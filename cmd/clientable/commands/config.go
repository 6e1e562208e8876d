package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/fivetwenty-io/clientable/internal/constants"
	"github.com/fivetwenty-io/clientable/pkg/registry"
	"github.com/mitchellh/mapstructure"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const configDirName = ".clientable"

// Config represents the CLI configuration.
type Config struct {
	Services map[string]*ServiceConfig `json:"services,omitempty" mapstructure:"services" yaml:"services,omitempty"`
	Registry *RegistryConfig           `json:"registry,omitempty" mapstructure:"registry" yaml:"registry,omitempty"`

	// Global settings
	Output          string `json:"output,omitempty"           mapstructure:"output"           yaml:"output,omitempty"`
	ProtocolVersion string `json:"protocol_version,omitempty" mapstructure:"protocol_version" yaml:"protocol_version,omitempty"`
	APIVersion      string `json:"api_version,omitempty"      mapstructure:"api_version"      yaml:"api_version,omitempty"`
	UserAgent       string `json:"user_agent,omitempty"       mapstructure:"user_agent"       yaml:"user_agent,omitempty"`
	Timeout         string `json:"timeout,omitempty"          mapstructure:"timeout"          yaml:"timeout,omitempty"`
}

// ServiceConfig represents a single configured service.
type ServiceConfig struct {
	Endpoint        string `json:"endpoint"                   mapstructure:"endpoint"         yaml:"endpoint"`
	Authorization   string `json:"authorization,omitempty"    mapstructure:"authorization"    yaml:"authorization,omitempty"`
	ProtocolVersion string `json:"protocol_version,omitempty" mapstructure:"protocol_version" yaml:"protocol_version,omitempty"`
	APIVersion      string `json:"api_version,omitempty"      mapstructure:"api_version"      yaml:"api_version,omitempty"`
}

// RegistryConfig selects the service registry backend.
type RegistryConfig struct {
	Type    string `json:"type"              mapstructure:"type"     yaml:"type"`
	NATSURL string `json:"nats_url,omitempty" mapstructure:"nats_url" yaml:"nats_url,omitempty"`
	Bucket  string `json:"bucket,omitempty"   mapstructure:"bucket"   yaml:"bucket,omitempty"`
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Show the clientable CLI configuration",
	}

	cmd.AddCommand(newConfigShowCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the current CLI configuration with credentials masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}

			masked := maskConfig(config)

			return render(cmd.OutOrStdout(), masked, func(w io.Writer) error {
				return displayConfigTable(w, masked)
			})
		},
	}
}

// loadConfig reads the CLI configuration from viper.
func loadConfig() (*Config, error) {
	config := &Config{Services: make(map[string]*ServiceConfig)}

	if err := mapstructure.Decode(viper.AllSettings(), config); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if config.Services == nil {
		config.Services = make(map[string]*ServiceConfig)
	}

	return config, nil
}

// saveConfigStruct writes config to the file viper read, or to the default
// location when there was none.
func saveConfigStruct(config *Config) error {
	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get user home directory: %w", err)
		}

		configDir := filepath.Join(home, configDirName)

		err = os.MkdirAll(configDir, constants.ConfigDirPerm)
		if err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}

		configFile = filepath.Join(configDir, "config.yml")
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	err = os.WriteFile(configFile, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	viper.Set("services", toPlain(config.Services))

	return nil
}

// registryConfig turns the CLI configuration into a registry configuration.
func registryConfig(config *Config) *registry.Config {
	services := make(map[string]string, len(config.Services))
	for name, service := range config.Services {
		services[name] = service.Endpoint
	}

	result := &registry.Config{
		Type:     registry.ResolverTypeMemory,
		Services: services,
	}

	if config.Registry != nil && config.Registry.Type != "" {
		result.Type = registry.ResolverType(config.Registry.Type)

		if config.Registry.NATSURL != "" {
			nats := registry.DefaultNATSConfig(config.Registry.NATSURL)
			if config.Registry.Bucket != "" {
				nats.Bucket = config.Registry.Bucket
			}

			result.NATS = nats
		}
	}

	return result
}

func maskConfig(config *Config) *Config {
	masked := *config
	masked.Services = make(map[string]*ServiceConfig, len(config.Services))

	for name, service := range config.Services {
		copied := *service
		if copied.Authorization != "" {
			copied.Authorization = Masked
		}

		masked.Services[name] = &copied
	}

	return &masked
}

func displayConfigTable(w io.Writer, config *Config) error {
	table := tablewriter.NewWriter(w)
	table.Header("Property", "Value")

	_ = table.Append("Output", valueOrNA(config.Output))
	_ = table.Append("Protocol Version", valueOrDefault(config.ProtocolVersion, constants.DefaultProtocolVersion))
	_ = table.Append("API Version", valueOrDefault(config.APIVersion, constants.DefaultAPIVersion))
	_ = table.Append("User Agent", valueOrDefault(config.UserAgent, constants.DefaultUserAgent))
	_ = table.Append("Timeout", valueOrDefault(config.Timeout, constants.DefaultTimeout.String()))

	registryType := string(registry.ResolverTypeMemory)
	if config.Registry != nil && config.Registry.Type != "" {
		registryType = config.Registry.Type
	}

	_ = table.Append("Registry", registryType)

	names := make([]string, 0, len(config.Services))
	for name := range config.Services {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		_ = table.Append("Service "+name, config.Services[name].Endpoint)
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func valueOrNA(value string) string {
	if value == "" {
		return NotAvailable
	}

	return value
}

func valueOrDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}

	return value
}
