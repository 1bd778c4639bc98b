package config

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// storageRequirements lists the settings each upload backend needs.
var storageRequirements = map[string]func(*Config) []ValidationError{
	"local": func(c *Config) []ValidationError {
		if c.UploadFolder == "" {
			return []ValidationError{{"UPLOAD_FOLDER", "is required for local storage"}}
		}
		return nil
	},
	"s3": func(c *Config) []ValidationError {
		var errs []ValidationError
		if c.S3BucketName == "" {
			errs = append(errs, ValidationError{"S3_BUCKET_NAME", "is required for s3 storage"})
		}
		if c.AWSRegion == "" {
			errs = append(errs, ValidationError{"AWS_REGION", "is required for s3 storage"})
		}
		return errs
	},
	"azure": func(c *Config) []ValidationError {
		var errs []ValidationError
		if c.AzureStorageAccount == "" {
			errs = append(errs, ValidationError{"AZURE_STORAGE_ACCOUNT", "is required for azure storage"})
		}
		if c.AzureStorageKey == "" {
			errs = append(errs, ValidationError{"AZURE_STORAGE_KEY", "is required for azure storage"})
		}
		if c.AzureStorageContainer == "" {
			errs = append(errs, ValidationError{"AZURE_STORAGE_CONTAINER", "is required for azure storage"})
		}
		return errs
	},
}

// ValidateConfig checks if the configuration meets the requirements for its environment
func ValidateConfig(cfg *Config) error {
	var errs []ValidationError

	if port, err := strconv.Atoi(cfg.ServerPort); err != nil || port <= 0 || port > 65535 {
		errs = append(errs, ValidationError{"SERVER_PORT", fmt.Sprintf("invalid port %q", cfg.ServerPort)})
	}

	if !strings.HasPrefix(cfg.DatabaseURL, "sqlite://") &&
		!strings.HasPrefix(cfg.DatabaseURL, "postgres://") &&
		!strings.HasPrefix(cfg.DatabaseURL, "postgresql://") {
		errs = append(errs, ValidationError{"DATABASE_URL", "must start with sqlite:// or postgres://"})
	}

	if check, ok := storageRequirements[cfg.StorageBackend]; ok {
		errs = append(errs, check(cfg)...)
	} else {
		errs = append(errs, ValidationError{"STORAGE_BACKEND", fmt.Sprintf("unknown backend %q", cfg.StorageBackend)})
	}

	if cfg.MaxUploadBytes <= 0 {
		errs = append(errs, ValidationError{"MAX_UPLOAD_BYTES", "must be positive"})
	}
	if cfg.BlendProbability < 0 || cfg.BlendProbability > 1 {
		errs = append(errs, ValidationError{"BLEND_PROBABILITY", "must be within [0, 1]"})
	}

	if cfg.Environment.IsProduction() {
		if cfg.SessionSecret == "" || cfg.SessionSecret == DevSessionSecret {
			errs = append(errs, ValidationError{"SESSION_SECRET", "a non-default secret is required in production"})
		}
	}

	if len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(msgs, "\n"))
	}

	return nil
}
