package config

import (
	"bytes"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/appINPP/root2data/pkg/errors"
)

// envRef matches ${NAME} references. A bare $NAME is left alone so that
// literal dollars in paths survive.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// LoadFile reads a Config from filePath and applies defaults. ${NAME}
// references are replaced with environment values before parsing. It does
// not validate: the CLI may still fill columns from flags.
func LoadFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath) //nolint:gosec // G304: path comes from the command line
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrorTypeFile, "read %s", filePath)
	}

	cfg := Default()
	if err := yaml.Unmarshal(expandEnv(data), cfg); err != nil {
		return nil, errors.Wrapf(err, errors.ErrorTypeConfig, "parse %s", filePath)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// Save writes cfg to filePath as YAML. An existing file is only replaced
// when overwrite is set.
func Save(filePath string, cfg *Config, overwrite bool) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "marshal configuration")
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(filePath, flags, 0o644) //nolint:gosec
	if err != nil {
		if os.IsExist(err) {
			return errors.Newf(errors.ErrorTypeValidation, "%s already exists", filePath)
		}
		return errors.Wrapf(err, errors.ErrorTypeFile, "create %s", filePath)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, errors.ErrorTypeFile, "write %s", filePath)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, errors.ErrorTypeFile, "close %s", filePath)
	}
	return nil
}

// expandEnv substitutes ${NAME} in one pass; unset variables become empty.
func expandEnv(content []byte) []byte {
	return envRef.ReplaceAllFunc(content, func(ref []byte) []byte {
		name := bytes.TrimSuffix(bytes.TrimPrefix(ref, []byte("${")), []byte("}"))
		return []byte(os.Getenv(string(name)))
	})
}
