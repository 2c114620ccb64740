// Package config decodes and validates per-service TOML configuration
// files using the standard BurntSushi/toml-over-tagged-struct style for
// declarative configuration.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/aryonoco/divban/internal/errs"
	"github.com/aryonoco/divban/internal/ids"
)

// CurrentSchemaVersion is the only divbanConfigSchemaVersion this build
// accepts. Loading requires an exact match rather than guessing at forward
// compatibility across schema revisions.
const CurrentSchemaVersion = "1.0.0"

// Paths is a service's per-service data directory layout: a required root
// plus service-specific optional subdirectories.
type Paths struct {
	DataDir  string `toml:"dataDir"`
	Upload   string `toml:"upload,omitempty"`
	Profile  string `toml:"profile,omitempty"`
	Thumb    string `toml:"thumb,omitempty"`
	Encoded  string `toml:"encoded,omitempty"`
	Postgres string `toml:"postgres,omitempty"`
}

// Network is the optional host-facing bind address/port.
type Network struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Container is the optional image/auto-update selection.
type Container struct {
	Image      string `toml:"image"`
	AutoUpdate bool   `toml:"autoUpdate"`
}

// Hardware is the optional transcoding/ML backend selection, carried here
// as plain strings, checked against the known backend names by Validate,
// and converted into quadlet.TranscodingBackend/MLBackend by the owning
// service.
type Hardware struct {
	Transcoding string `toml:"transcoding"`
	ML          string `toml:"ml"`
}

// ExternalLibrary is one additional host-path bind mount a service exposes
// beyond its own data directory (e.g. immich's externalLibraries).
type ExternalLibrary struct {
	HostPath      string `toml:"hostPath"`
	ContainerPath string `toml:"containerPath"`
	ReadOnly      bool   `toml:"readOnly"`
}

// Backup is the optional per-service backup policy.
type Backup struct {
	Compression string   `toml:"compression"`
	Exclude     []string `toml:"exclude"`
}

// Base is the common field set every service's TOML config carries at
// minimum. Concrete services embed Base anonymously and add
// their own fields (e.g. immich's Database); BurntSushi/toml promotes
// embedded struct fields the same way encoding/json does, so a single
// Decode call fills both layers from one file.
type Base struct {
	SchemaVersion     string            `toml:"divbanConfigSchemaVersion"`
	Paths             Paths             `toml:"paths"`
	Network           *Network          `toml:"network"`
	Container         *Container        `toml:"container"`
	Hardware          *Hardware         `toml:"hardware"`
	ExternalLibraries []ExternalLibrary `toml:"externalLibraries"`
	Backup            Backup            `toml:"backup"`
	LogLevel          string            `toml:"logLevel"`
}

// Based lets any service-specific config type (which embeds Base) hand its
// common fields back to shared validation without the caller needing to
// know the concrete type.
type Based interface {
	Based() Base
}

// Based is promoted to every type that embeds Base anonymously.
func (b Base) Based() Base { return b }

// Decode reads and parses path as TOML into T, without validating it
// (matching the "validate" operation's decode-only contract).
func Decode[T any](path ids.AbsolutePath) (T, error) {
	var out T
	if _, err := toml.DecodeFile(path.String(), &out); err != nil {
		return out, errs.Wrap(errs.Config, "CONFIG_DECODE_FAILED", fmt.Sprintf("decode config file %s", path), err)
	}
	return out, nil
}

// Load decodes path into T and validates its common Base fields, returning
// a Config error on the first violation.
func Load[T Based](path ids.AbsolutePath) (T, error) {
	cfg, err := Decode[T](path)
	if err != nil {
		return cfg, err
	}
	if err := Validate(cfg.Based()); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks every Base-level invariant: required fields present,
// absolute paths, and recognized enum values.
func Validate(b Base) error {
	if b.SchemaVersion == "" {
		return errs.New(errs.Config, "MISSING_SCHEMA_VERSION", "divbanConfigSchemaVersion is required")
	}
	if _, err := ids.ParseConfigSchemaVersion(b.SchemaVersion); err != nil {
		return err
	}
	if b.SchemaVersion != CurrentSchemaVersion {
		return errs.New(errs.Config, "UNSUPPORTED_SCHEMA_VERSION",
			fmt.Sprintf("divbanConfigSchemaVersion %q is not supported by this build (expected %q)", b.SchemaVersion, CurrentSchemaVersion))
	}

	if b.Paths.DataDir == "" {
		return errs.New(errs.Config, "MISSING_DATA_DIR", "paths.dataDir is required")
	}
	if err := mustAbs("paths.dataDir", b.Paths.DataDir); err != nil {
		return err
	}
	for field, v := range map[string]string{
		"paths.upload": b.Paths.Upload, "paths.profile": b.Paths.Profile,
		"paths.thumb": b.Paths.Thumb, "paths.encoded": b.Paths.Encoded, "paths.postgres": b.Paths.Postgres,
	} {
		if v == "" {
			continue
		}
		if err := mustAbs(field, v); err != nil {
			return err
		}
	}

	if b.Network != nil {
		if b.Network.Port < 0 || b.Network.Port > 65535 {
			return errs.New(errs.Config, "INVALID_PORT", fmt.Sprintf("network.port %d out of range", b.Network.Port))
		}
	}

	for i, lib := range b.ExternalLibraries {
		if lib.HostPath == "" || lib.ContainerPath == "" {
			return errs.New(errs.Config, "INVALID_EXTERNAL_LIBRARY", fmt.Sprintf("externalLibraries[%d] requires hostPath and containerPath", i))
		}
		if err := mustAbs(fmt.Sprintf("externalLibraries[%d].hostPath", i), lib.HostPath); err != nil {
			return err
		}
		if err := mustAbs(fmt.Sprintf("externalLibraries[%d].containerPath", i), lib.ContainerPath); err != nil {
			return err
		}
	}

	if b.Hardware != nil {
		switch b.Hardware.Transcoding {
		case "", "disabled", "nvenc", "qsv", "vaapi", "vaapi-wsl", "rkmpp":
		default:
			return errs.New(errs.Config, "INVALID_HARDWARE", fmt.Sprintf("hardware.transcoding %q is not recognized", b.Hardware.Transcoding))
		}
		switch b.Hardware.ML {
		case "", "disabled", "cuda", "openvino", "openvino-wsl", "armnn", "rknn", "rocm":
		default:
			return errs.New(errs.Config, "INVALID_HARDWARE", fmt.Sprintf("hardware.ml %q is not recognized", b.Hardware.ML))
		}
	}

	switch b.Backup.Compression {
	case "", "gzip", "zstd":
	default:
		return errs.New(errs.Config, "INVALID_COMPRESSION", fmt.Sprintf("backup.compression %q must be gzip or zstd", b.Backup.Compression))
	}

	switch b.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return errs.New(errs.Config, "INVALID_LOG_LEVEL", fmt.Sprintf("logLevel %q is not recognized", b.LogLevel))
	}

	return nil
}

func mustAbs(field, value string) error {
	if _, err := ids.ParseAbsolutePath(value); err != nil {
		return errs.New(errs.Config, "INVALID_PATH", fmt.Sprintf("%s must be an absolute path, got %q", field, value))
	}
	return nil
}

// CompressionOrDefault returns the configured backup compression algorithm,
// defaulting to gzip when unset.
func (b Backup) CompressionOrDefault() string {
	if b.Compression == "" {
		return "gzip"
	}
	return b.Compression
}
