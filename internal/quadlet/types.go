// Package quadlet emits the INI-like text unit files a container engine's
// systemd generator consumes, built on gopkg.in/ini.v1.
package quadlet

import "github.com/aryonoco/divban/internal/ids"

// Capabilities carries the host facts the generator needs to decide things
// like SELinux relabeling. It mirrors internal/service's
// Capabilities so the generator doesn't depend on the service package.
type Capabilities struct {
	SELinuxEnforcing bool
}

// Port is one PublishPort entry.
type Port struct {
	HostIP        string
	HostPort      int
	ContainerPort int
	Protocol      string // "tcp" or "udp"
}

// Volume is one container mount. Source is either an AbsolutePath (bind
// mount) or a bare name (named volume, referencing a generated .volume
// unit).
type Volume struct {
	Source  string
	Target  string
	Options []string
}

// IsBindMount reports whether Source is an absolute path, the discriminator
// SELinux relabeling and the stack composer's named-volume-unit emission
// both key off.
func (v Volume) IsBindMount() bool {
	return len(v.Source) > 0 && v.Source[0] == '/'
}

// MountSecret is a Secret=...,type=mount[,target=...] directive.
type MountSecret struct {
	Name   string
	Target string // optional; defaults to /run/secrets/<name> if empty
}

// EnvSecret is a Secret=...,type=env,target=VAR directive.
type EnvSecret struct {
	Name   string
	Target string
}

// Device is an AddDevice=host:container mapping.
type Device struct {
	Host      string
	Container string
}

// HealthCheck mirrors the HealthCmd/interval/timeout/retries/start-period
// group of Container directives.
type HealthCheck struct {
	Cmd         string
	Interval    ids.Duration
	Timeout     ids.Duration
	Retries     int
	StartPeriod ids.Duration
}

// ServicePolicy is the [Service] section: restart policy and timeouts.
type ServicePolicy struct {
	Restart               string
	RestartSec            ids.Duration
	TimeoutStartSec       ids.Duration
	TimeoutStopSec        ids.Duration
	StartLimitIntervalSec ids.Duration
	StartLimitBurst       int
}

// UserNS is the three-mode UserNS directive.
type UserNS struct {
	Mode string // "auto", "host", "keep-id"
	UID  *int
	GID  *int
}

// ContainerSpec is everything BuildContainer needs to emit one
// `<stack>-<name>.container` quadlet.
type ContainerSpec struct {
	StackName       string
	Name            ids.ContainerName
	Image           ids.ContainerImage
	Description     string
	Requires        []string // other container names in the same stack
	Wants           []string
	Ports           []Port
	Volumes         []Volume
	Environment     map[string]string
	EnvironmentFile []ids.AbsolutePath
	SecretMounts    []MountSecret
	SecretEnvs      []EnvSecret
	Devices         []Device
	SecurityOpts    []string
	Groups          []string
	UserNS          *UserNS
	HealthCheck     *HealthCheck
	ShmSize         string
	ReadOnlyRootfs  bool
	NoNewPrivileges bool
	Service         ServicePolicy
	HasNetwork      bool
}
