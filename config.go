package maestro

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/fogfish/opts"
	json "github.com/goccy/go-json"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
)

// Config is the file-loadable broker configuration. Every field is
// optional; zero values keep the built-in defaults.
type Config struct {
	Name  string `json:"name" toml:"name"`
	Node  string `json:"node" toml:"node"`
	Debug bool   `json:"debug" toml:"debug"`

	NATS  NATSConfig  `json:"nats" toml:"nats"`
	Redis RedisConfig `json:"redis" toml:"redis"`
}

// WithConfig applies a loaded configuration to the broker.
func WithConfig(cfg Config) opts.Option[Broker] {
	return opts.Type[Broker](func(b *Broker) error {
		if cfg.Name != "" {
			b.name = cfg.Name
		}
		if cfg.Node != "" {
			b.node = cfg.Node
		}
		if cfg.Debug {
			b.log = b.log.Level(zerolog.DebugLevel)
		}
		return nil
	})
}

// LoadConfig reads a TOML or JSON config file. The format follows the file
// extension, falling back to sniffing the content.
func LoadConfig(file string) (Config, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return Config{}, err
	}
	format := detectConfigFormat(file, data)
	if format == "" {
		return Config{}, errors.New("unknown config format: " + file)
	}
	return decodeConfig(data, format)
}

// FindConfigFile locates a config file from the environment
// (MAESTRO_CONFIG), the command line (--config), or conventional
// candidates next to the executable. Empty means none found.
func FindConfigFile() string {
	if v := os.Getenv("MAESTRO_CONFIG"); v != "" {
		return v
	}
	if v := os.Getenv("MAESTRO_CONFIG_FILE"); v != "" {
		return v
	}
	if v := configFileFromArgs(os.Args[1:]); v != "" {
		return v
	}

	candidates := []string{"config.toml", "config.json"}
	if exe := filepath.Base(os.Args[0]); exe != "" {
		name := strings.TrimSuffix(exe, filepath.Ext(exe))
		candidates = append(candidates, name+".toml", name+".json")
	}
	for _, file := range candidates {
		if _, err := os.Stat(file); err == nil {
			return file
		}
	}
	return ""
}

func configFileFromArgs(args []string) string {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			continue
		}
		kv := strings.TrimPrefix(arg, "--")
		if kv == "" {
			continue
		}

		key := ""
		val := ""
		if strings.Contains(kv, "=") {
			parts := strings.SplitN(kv, "=", 2)
			key = strings.ToLower(parts[0])
			val = parts[1]
		} else if i+1 < len(args) && !strings.HasPrefix(args[i+1], "--") {
			key = strings.ToLower(kv)
			val = args[i+1]
			i++
		}
		if (key == "config" || key == "config-file" || key == "config_file") && val != "" {
			return val
		}
	}
	return ""
}

func detectConfigFormat(file string, data []byte) string {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".json":
		return "json"
	case ".toml", ".tml":
		return "toml"
	}

	// a leading "[" is ambiguous: TOML table headers start the same way,
	// and a top-level JSON array is not a valid Config anyway
	str := strings.TrimSpace(string(data))
	if strings.HasPrefix(str, "{") {
		return "json"
	}
	if str != "" {
		return "toml"
	}
	return ""
}

func decodeConfig(data []byte, format string) (Config, error) {
	var out Config
	switch format {
	case "json":
		if err := json.Unmarshal(data, &out); err != nil {
			return Config{}, err
		}
	case "toml":
		if err := toml.Unmarshal(data, &out); err != nil {
			return Config{}, err
		}
	default:
		return Config{}, errors.New("unknown config format: " + format)
	}
	return out, nil
}
