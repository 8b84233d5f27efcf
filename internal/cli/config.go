package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// projectConfigFiles is the search order for project config files
var projectConfigFiles = []string{"veriforge.toml", "vf.toml"}

// ProjectConfig is the project-level TOML configuration
type ProjectConfig struct {
	Server       string   `toml:"server"`
	Project      string   `toml:"project,omitempty"`
	ArtifactsDir string   `toml:"artifacts_dir,omitempty"`
	Contracts    []string `toml:"contracts,omitempty"`
	Exclude      []string `toml:"exclude,omitempty"`
	ExcludePaths []string `toml:"exclude_paths,omitempty"`
}

// ServerConfig is the global server configuration (stored in ~/.veriforge/config.yaml)
type ServerConfig struct {
	Server string `yaml:"server"`
}

func createConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}

	cmd.AddCommand(createConfigInitCmd())
	cmd.AddCommand(createConfigShowCmd())

	return cmd
}

func createConfigInitCmd() *cobra.Command {
	var serverURL string
	var project string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create config file",
		Long: `Create a veriforge.toml configuration file in the current directory.

This file stores project-specific settings like the server URL,
project name, and which contracts to include/exclude.

EXAMPLES:
  # Create config with default server
  veriforge config init

  # Create config for a specific server
  veriforge config init --server https://veriforge.example.com

  # Overwrite existing config
  veriforge config init --force
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(serverURL, project, force)
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "server URL")
	cmd.Flags().StringVar(&project, "project", "", "project name (defaults to directory name)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing config")

	return cmd
}

func createConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current config",
		Long: `Display the current configuration.

Shows both the local project config (veriforge.toml) and the global config from ~/.veriforge/config.yaml.

EXAMPLES:
  veriforge config show
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow()
		},
	}

	return cmd
}

func runConfigInit(serverURL, project string, force bool) error {
	configPath := "veriforge.toml"

	// Check if any config file already exists
	for _, cfgFile := range projectConfigFiles {
		if _, err := os.Stat(cfgFile); err == nil && !force {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", cfgFile)
		}
	}

	// Default project name to current directory
	if project == "" {
		cwd, err := os.Getwd()
		if err == nil {
			project = filepath.Base(cwd)
		}
	}

	// Generate TOML config
	content := fmt.Sprintf(`# Veriforge project configuration
# See https://github.com/pendergraft/veriforge for documentation

server = "%s"
project = "%s"

# Patterns to exclude from uploading
exclude = ["Test", "Script", "Mock", "Deploy", "Setup"]

# Exclude by source path (substring, e.g. "proxy" or "examples/MetaCoin.sol")
# exclude_paths = ["proxy", "examples/MetaCoin.sol"]

# Specific contracts to upload (empty = all from src/)
# contracts = ["MyContract", "OtherContract"]

# Foundry project root containing out/ (default: current directory)
# artifacts_dir = "."
`, serverURL, project)

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Created %s\n", configPath)
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Printf("  Server:  %s\n", serverURL)
	fmt.Printf("  Project: %s\n", project)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Printf("  1. Edit %s to customize settings\n", configPath)
	fmt.Println("  2. Run 'veriforge auth login' to authenticate")
	fmt.Println("  3. Run 'veriforge upload' to register your contracts")

	return nil
}

func runConfigShow() error {
	fmt.Println("Configuration sources (in order of precedence):")
	fmt.Println()

	// 1. Command line flags
	fmt.Println("1. Command line flags")
	fmt.Println("   --server, --api-key, --config")
	fmt.Println()

	// 2. Environment variables
	fmt.Println("2. Environment variables")
	serverEnv := os.Getenv("VERIFORGE_SERVER")
	keyEnv := os.Getenv("VERIFORGE_API_KEY")
	if serverEnv != "" {
		fmt.Printf("   VERIFORGE_SERVER=%s\n", serverEnv)
	} else {
		fmt.Println("   VERIFORGE_SERVER=(not set)")
	}
	if keyEnv != "" {
		fmt.Printf("   VERIFORGE_API_KEY=%s\n", maskAPIKey(keyEnv))
	} else {
		fmt.Println("   VERIFORGE_API_KEY=(not set)")
	}
	fmt.Println()

	// 3. Local project config
	fmt.Println("3. Local project config (veriforge.toml or vf.toml)")
	projectConfig, configPath, err := loadProjectConfig()
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("   (not found)")
		} else {
			fmt.Printf("   Error: %v\n", err)
		}
	} else {
		fmt.Printf("   Loaded from: %s\n", configPath)
		if projectConfig.Server != "" {
			fmt.Printf("   server: %s\n", projectConfig.Server)
		}
		if projectConfig.Project != "" {
			fmt.Printf("   project: %s\n", projectConfig.Project)
		}
		if projectConfig.ArtifactsDir != "" {
			fmt.Printf("   artifacts_dir: %s\n", projectConfig.ArtifactsDir)
		}
		if len(projectConfig.Contracts) > 0 {
			fmt.Printf("   contracts: %v\n", projectConfig.Contracts)
		}
		if len(projectConfig.Exclude) > 0 {
			fmt.Printf("   exclude: %v\n", projectConfig.Exclude)
		}
		if len(projectConfig.ExcludePaths) > 0 {
			fmt.Printf("   exclude_paths: %v\n", projectConfig.ExcludePaths)
		}
	}
	fmt.Println()

	// 4. Global config
	fmt.Println("4. Global config (~/.veriforge/config.yaml)")
	globalPath := filepath.Join(credentialsDir(), "config.yaml")
	globalData, err := os.ReadFile(globalPath)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("   (not found)")
		} else {
			fmt.Printf("   Error: %v\n", err)
		}
	} else {
		var globalConfig ServerConfig
		if err := yaml.Unmarshal(globalData, &globalConfig); err == nil {
			if globalConfig.Server != "" {
				fmt.Printf("   server: %s\n", globalConfig.Server)
			}
		}
	}
	fmt.Println()

	// 5. Credentials
	fmt.Println("5. Credentials (~/.veriforge/credentials.yaml)")
	creds, err := loadCredentials()
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("   (not found)")
		} else {
			fmt.Printf("   Error: %v\n", err)
		}
	} else {
		if len(creds.Servers) == 0 {
			fmt.Println("   (no credentials stored)")
		} else {
			for server, cred := range creds.Servers {
				fmt.Printf("   %s: %s\n", server, maskAPIKey(cred.APIKey))
			}
		}
	}
	fmt.Println()

	// Effective config
	fmt.Println("Effective configuration:")
	fmt.Printf("   Server:  %s\n", getServer())
	if key := getAPIKey(); key != "" {
		fmt.Printf("   API Key: %s\n", maskAPIKey(key))
	} else {
		fmt.Println("   API Key: (not set)")
	}

	return nil
}

// loadProjectConfig loads the project config from the first matching config file.
// Returns the config, the path it was loaded from, and an error.
func loadProjectConfig() (*ProjectConfig, string, error) {
	// If --config flag was provided, use that directly
	if cfgFile != "" {
		config, err := loadProjectConfigFromPath(cfgFile)
		if err != nil {
			return nil, cfgFile, err
		}
		return config, cfgFile, nil
	}

	// Search for config files in order
	for _, name := range projectConfigFiles {
		if _, err := os.Stat(name); err == nil {
			config, err := loadProjectConfigFromPath(name)
			if err != nil {
				return nil, name, err
			}
			return config, name, nil
		}
	}
	return nil, "", os.ErrNotExist
}

// loadProjectConfigFromPath loads a project config from a specific path
func loadProjectConfigFromPath(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config ProjectConfig
	if _, err := toml.Decode(string(data), &config); err != nil {
		return nil, fmt.Errorf("parsing TOML: %w", err)
	}

	return &config, nil
}

// loadProjectConfigSilent loads the project config without returning errors for missing files.
// Returns nil if the file doesn't exist, but returns errors for parse failures.
func loadProjectConfigSilent() *ProjectConfig {
	config, _, err := loadProjectConfig()
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		// Show actionable errors (parse failures)
		fmt.Fprintf(os.Stderr, "Warning: failed to load project config: %v\n", err)
		return nil
	}
	return config
}
