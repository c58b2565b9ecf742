package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"

	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/logging"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/types"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/utils"
)

// catalogGlob matches catalog files anywhere under the catalog directory.
const catalogGlob = "**/*.{yaml,yml,toml,json}"

// manifest is the on-disk file shape. A file either carries a list under
// the apps key or is a single application record.
type manifest struct {
	Apps []types.Application `json:"apps" yaml:"apps" toml:"apps"`
}

// Loader reads application records from the catalog directory.
type Loader struct {
	dir    string
	logger *logging.Logger
}

// NewLoader creates a loader over dir.
func NewLoader(dir string, logger *logging.Logger) *Loader {
	return &Loader{
		dir:    dir,
		logger: logger.Component("catalog-loader"),
	}
}

// Load scans the catalog directory and returns the valid records.
// Duplicate ids keep the first occurrence in path order. A missing
// directory yields an empty catalog, not an error.
func (l *Loader) Load(ctx context.Context) ([]types.Application, error) {
	if _, err := os.Stat(l.dir); os.IsNotExist(err) {
		l.logger.Warn("catalog directory missing", zap.String("dir", l.dir))
		return nil, nil
	}

	pattern := filepath.Join(l.dir, catalogGlob)
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("catalog glob: %w", err)
	}

	seen := make(map[string]string) // id -> first file
	var apps []types.Application

	for _, path := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		records, err := l.loadFile(path)
		if err != nil {
			l.logger.Warn("skipping catalog file",
				zap.String("file", path),
				zap.Error(err),
			)
			continue
		}

		for _, app := range records {
			if err := validate(app); err != nil {
				l.logger.Warn("skipping invalid record",
					zap.String("file", path),
					zap.String("app_id", app.ID),
					zap.Error(err),
				)
				continue
			}
			if first, dup := seen[app.ID]; dup {
				l.logger.Warn("duplicate app id, keeping first",
					zap.String("app_id", app.ID),
					zap.String("kept", first),
					zap.String("ignored", path),
				)
				continue
			}
			seen[app.ID] = path
			apps = append(apps, app)
		}
	}

	l.logger.Info("catalog loaded",
		zap.Int("apps", len(apps)),
		zap.Int("files", len(matches)),
	)
	return apps, nil
}

// loadFile decodes one catalog file by extension.
func (l *Loader) loadFile(path string) ([]types.Application, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return decode(filepath.Ext(path), data)
}

func decode(ext string, data []byte) ([]types.Application, error) {
	var m manifest
	var single types.Application

	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("yaml: %w", err)
		}
		if len(m.Apps) == 0 {
			if err := yaml.Unmarshal(data, &single); err != nil {
				return nil, fmt.Errorf("yaml: %w", err)
			}
		}
	case ".toml":
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("toml: %w", err)
		}
		if len(m.Apps) == 0 {
			if err := toml.Unmarshal(data, &single); err != nil {
				return nil, fmt.Errorf("toml: %w", err)
			}
		}
	case ".json":
		if err := sonic.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("json: %w", err)
		}
		if len(m.Apps) == 0 {
			if err := sonic.Unmarshal(data, &single); err != nil {
				return nil, fmt.Errorf("json: %w", err)
			}
		}
	default:
		return nil, fmt.Errorf("unsupported extension %q", ext)
	}

	if len(m.Apps) > 0 {
		return m.Apps, nil
	}
	if single.ID != "" {
		return []types.Application{single}, nil
	}
	return nil, nil
}

// validate checks a record is launchable as described.
func validate(app types.Application) error {
	if err := utils.ValidateID(app.ID, "id", true); err != nil {
		return err
	}
	if err := utils.ValidateName(app.Name, "name"); err != nil {
		return err
	}
	if !app.Category.Valid() {
		return fmt.Errorf("unknown category %q", app.Category)
	}

	switch app.Category {
	case types.CategoryWeb, types.CategoryEmbedded:
		if err := utils.ValidateURL(app.Path, "path", true); err != nil {
			return err
		}
	case types.CategoryEmulated:
		if err := utils.ValidatePackageID(app.HostPackage, "host_package", true); err != nil {
			return err
		}
	default:
		if err := utils.ValidatePath(app.Path, "path", true); err != nil {
			return err
		}
	}
	return nil
}
