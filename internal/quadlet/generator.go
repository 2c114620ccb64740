package quadlet

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

// Unit is one generated text file: its on-disk name and rendered content.
type Unit struct {
	Name    string
	Content string
}

// BuildNetwork emits a `<name>.network` unit.
func BuildNetwork(name string, internal bool) Unit {
	file := ini.Empty(ini.LoadOptions{AllowShadows: true})
	section, _ := file.NewSection("Network")
	_, _ = section.NewKey("NetworkName", name)
	_, _ = section.NewKey("Driver", "bridge")
	_, _ = section.NewKey("Internal", strconv.FormatBool(internal))
	return unitBuilder{Name: name + ".network", File: file}.render()
}

// BuildVolume emits a `<name>.volume` unit.
func BuildVolume(name, description string) Unit {
	file := ini.Empty(ini.LoadOptions{AllowShadows: true})
	section, _ := file.NewSection("Volume")
	_, _ = section.NewKey("VolumeName", name)
	if description != "" {
		_, _ = section.NewKey("Description", description)
	}
	return unitBuilder{Name: name + ".volume", File: file}.render()
}

// unitBuilder is an intermediate used only to keep render() private to this
// file without exporting ini.File on Unit.
type unitBuilder struct {
	Name string
	File *ini.File
}

// Quadlet directives are written as Key=value, without the aligned
// " = " separator ini.v1 emits by default.
func init() { ini.PrettyFormat = false }

func (u unitBuilder) render() Unit {
	var b strings.Builder
	_, _ = u.File.WriteTo(&b)
	return Unit{Name: u.Name, Content: b.String()}
}

// BuildContainer converts a ContainerSpec into a `<stack>-<name>.container`
// unit with the standard [Unit]/[Container]/[Service] layout, using an
// ini.v1 sectionMap+shadowMap: repeated directives (Volume=, Environment=,
// Secret=, ...) are written as shadow keys so every occurrence survives
// serialization.
func BuildContainer(spec ContainerSpec, caps Capabilities, subs Substitutions) Unit {
	file := ini.Empty(ini.LoadOptions{AllowShadows: true})

	buildUnitSection(file, spec)

	containerSection, _ := file.NewSection("Container")
	sectionMap := map[string]string{}
	shadowMap := map[string][]string{}
	buildContainerSection(spec, caps, subs, sectionMap, shadowMap)
	writeSection(containerSection, sectionMap, shadowMap)

	serviceSection, _ := file.NewSection("Service")
	buildServiceSection(serviceSection, spec.Service)

	name := fmt.Sprintf("%s-%s", spec.StackName, spec.Name)
	return unitBuilder{Name: name + ".container", File: file}.render()
}

func writeSection(section *ini.Section, sectionMap map[string]string, shadowMap map[string][]string) {
	keys := make([]string, 0, len(sectionMap))
	for k := range sectionMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		_, _ = section.NewKey(k, sectionMap[k])
	}

	shadowKeys := make([]string, 0, len(shadowMap))
	for k := range shadowMap {
		shadowKeys = append(shadowKeys, k)
	}
	sort.Strings(shadowKeys)
	for _, k := range shadowKeys {
		values := shadowMap[k]
		if len(values) == 0 {
			continue
		}
		key, _ := section.NewKey(k, values[0])
		for _, v := range values[1:] {
			_ = key.AddShadow(v)
		}
	}
}

func buildUnitSection(file *ini.File, spec ContainerSpec) {
	var requires, wants []string
	if spec.HasNetwork {
		requires = append(requires, spec.StackName+"-network.service")
	}
	for _, dep := range spec.Requires {
		requires = append(requires, fmt.Sprintf("%s-%s.service", spec.StackName, dep))
	}
	for _, dep := range spec.Wants {
		wants = append(wants, fmt.Sprintf("%s-%s.service", spec.StackName, dep))
	}
	if len(requires) == 0 && len(wants) == 0 && spec.Description == "" {
		return
	}

	section, _ := file.NewSection("Unit")
	if spec.Description != "" {
		_, _ = section.NewKey("Description", spec.Description)
	}
	if len(requires) > 0 {
		_, _ = section.NewKey("Requires", strings.Join(requires, " "))
	}
	if len(wants) > 0 {
		_, _ = section.NewKey("Wants", strings.Join(wants, " "))
	}
}

func buildServiceSection(section *ini.Section, svc ServicePolicy) {
	if svc.Restart != "" {
		_, _ = section.NewKey("Restart", svc.Restart)
	}
	if svc.RestartSec != "" {
		_, _ = section.NewKey("RestartSec", string(svc.RestartSec))
	}
	if svc.TimeoutStartSec != "" {
		_, _ = section.NewKey("TimeoutStartSec", string(svc.TimeoutStartSec))
	}
	if svc.TimeoutStopSec != "" {
		_, _ = section.NewKey("TimeoutStopSec", string(svc.TimeoutStopSec))
	}
	if svc.StartLimitIntervalSec != "" {
		_, _ = section.NewKey("StartLimitIntervalSec", string(svc.StartLimitIntervalSec))
	}
	if svc.StartLimitBurst > 0 {
		_, _ = section.NewKey("StartLimitBurst", strconv.Itoa(svc.StartLimitBurst))
	}
}

//nolint:gocyclo // one switchboard mapping container fields to quadlet directives
func buildContainerSection(spec ContainerSpec, caps Capabilities, subs Substitutions, section map[string]string, shadows map[string][]string) {
	section["ContainerName"] = fmt.Sprintf("%s-%s", spec.StackName, spec.Name)

	image := spec.Image.Name
	if spec.Image.Tag != "" {
		image += ":" + spec.Image.Tag
	}
	if spec.Image.Digest != "" {
		image += "@" + spec.Image.Digest
	}
	section["Image"] = image

	if spec.HasNetwork {
		section["Network"] = spec.StackName + ".network"
	}

	for _, p := range spec.Ports {
		proto := p.Protocol
		if proto == "" {
			proto = "tcp"
		}
		var s string
		if p.HostIP != "" {
			s = fmt.Sprintf("%s:%d:%d/%s", p.HostIP, p.HostPort, p.ContainerPort, proto)
		} else {
			s = fmt.Sprintf("%d:%d/%s", p.HostPort, p.ContainerPort, proto)
		}
		shadows["PublishPort"] = append(shadows["PublishPort"], subs.Apply(s))
	}

	for _, v := range spec.Volumes {
		opts := append([]string(nil), v.Options...)
		if v.IsBindMount() && caps.SELinuxEnforcing && !containsString(opts, "z") && !containsString(opts, "Z") {
			opts = append(opts, "z")
		}
		entry := subs.Apply(v.Source) + ":" + subs.Apply(v.Target)
		if len(opts) > 0 {
			entry += ":" + strings.Join(opts, ",")
		}
		shadows["Volume"] = append(shadows["Volume"], entry)
	}

	keys := make([]string, 0, len(spec.Environment))
	for k := range spec.Environment {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		shadows["Environment"] = append(shadows["Environment"], fmt.Sprintf("%s=%s", k, subs.Apply(spec.Environment[k])))
	}

	for _, f := range spec.EnvironmentFile {
		shadows["EnvironmentFile"] = append(shadows["EnvironmentFile"], string(f))
	}

	for _, sm := range spec.SecretMounts {
		entry := fmt.Sprintf("%s,type=mount", sm.Name)
		if sm.Target != "" {
			entry += ",target=" + sm.Target
		}
		shadows["Secret"] = append(shadows["Secret"], entry)
	}
	for _, se := range spec.SecretEnvs {
		shadows["Secret"] = append(shadows["Secret"], fmt.Sprintf("%s,type=env,target=%s", se.Name, se.Target))
	}

	for _, d := range spec.Devices {
		shadows["AddDevice"] = append(shadows["AddDevice"], fmt.Sprintf("%s:%s", d.Host, d.Container))
	}

	shadows["SecurityOpt"] = append(shadows["SecurityOpt"], spec.SecurityOpts...)
	shadows["GroupAdd"] = append(shadows["GroupAdd"], spec.Groups...)

	if spec.UserNS != nil {
		section["UserNS"] = RenderUserNS(*spec.UserNS)
	}

	if spec.ShmSize != "" {
		section["ShmSize"] = spec.ShmSize
	}
	if spec.ReadOnlyRootfs {
		section["ReadOnly"] = "true"
	}
	if spec.NoNewPrivileges {
		section["NoNewPrivileges"] = "true"
	}

	if spec.HealthCheck != nil {
		hc := spec.HealthCheck
		section["HealthCmd"] = subs.Apply(hc.Cmd)
		if hc.Interval != "" {
			section["HealthInterval"] = string(hc.Interval)
		}
		if hc.Timeout != "" {
			section["HealthTimeout"] = string(hc.Timeout)
		}
		if hc.Retries > 0 {
			section["HealthRetries"] = strconv.Itoa(hc.Retries)
		}
		if hc.StartPeriod != "" {
			section["HealthStartPeriod"] = string(hc.StartPeriod)
		}
	}

	section["LogDriver"] = "journald"
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// RenderUserNS formats the UserNS directive for its three supported modes.
func RenderUserNS(u UserNS) string {
	switch u.Mode {
	case "keep-id":
		s := "keep-id"
		switch {
		case u.UID != nil && u.GID != nil:
			s += fmt.Sprintf(":uid=%d,gid=%d", *u.UID, *u.GID)
		case u.UID != nil:
			s += fmt.Sprintf(":uid=%d", *u.UID)
		case u.GID != nil:
			s += fmt.Sprintf(":gid=%d", *u.GID)
		}
		return s
	default:
		return u.Mode
	}
}
