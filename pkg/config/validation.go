package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/marmos91/oceancache/pkg/axis"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags first, then the rules tags cannot express:
// axis ordering, the per-type source settings and the initial selection.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed '%s' (value: %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid configuration:\n  %s", strings.Join(msgs, "\n  "))
		}
		return err
	}

	axes, err := BuildAxes(cfg.Dataset)
	if err != nil {
		return fmt.Errorf("dataset: %w", err)
	}
	if err := validateSource(cfg.Source); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	return validateInitial(cfg.Scheduler.Initial, axes)
}

func validateSource(cfg SourceConfig) error {
	switch cfg.Type {
	case SourceHTTP:
		u, err := url.Parse(cfg.HTTP.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("http.base_url %q is not an absolute URL", cfg.HTTP.BaseURL)
		}
	case SourceFilesystem:
		if cfg.Filesystem.BasePath == "" {
			return errors.New("filesystem.base_path is required")
		}
	case SourceS3:
		if cfg.S3.Bucket == "" {
			return errors.New("s3.bucket is required")
		}
		if (cfg.S3.AccessKeyID == "") != (cfg.S3.SecretAccessKey == "") {
			return errors.New("s3.access_key_id and s3.secret_access_key must be set together")
		}
	case SourceBadger:
		if cfg.Badger.Path == "" {
			return errors.New("badger.path is required")
		}
	default:
		return fmt.Errorf("unknown source type %q", cfg.Type)
	}
	return nil
}

func validateInitial(cfg InitialSelectionConfig, axes *axis.Axes) error {
	if !axes.HasAttribute(axis.Attribute(cfg.Attribute)) {
		return fmt.Errorf("scheduler.initial.attribute %q is not a dataset attribute", cfg.Attribute)
	}
	if cfg.Timestamp >= axes.NumTimestamps() {
		return fmt.Errorf("scheduler.initial.timestamp %d out of range (%d timestamps)", cfg.Timestamp, axes.NumTimestamps())
	}
	if cfg.Level >= axes.NumLevels() {
		return fmt.Errorf("scheduler.initial.level %d out of range (%d levels)", cfg.Level, axes.NumLevels())
	}
	return nil
}
