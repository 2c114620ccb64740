// Package stack composes a dependency-ordered multi-container stack:
// topological sort of container Requires, network/volume unit emission, and
// per-container quadlet generation.
package stack

import (
	"fmt"
	"sort"

	"github.com/aryonoco/divban/internal/errs"
	"github.com/aryonoco/divban/internal/ids"
	"github.com/aryonoco/divban/internal/quadlet"
	"github.com/aryonoco/divban/internal/result"
)

// Network is the stack's optional shared network.
type Network struct {
	Internal bool
}

// Container is one member of a Stack, carrying every quadlet field plus its
// intra-stack dependency names.
type Container struct {
	Name            ids.ContainerName
	Image           ids.ContainerImage
	Description     string
	Requires        []string
	Wants           []string
	Ports           []quadlet.Port
	Volumes         []quadlet.Volume
	Environment     map[string]string
	EnvironmentFile []ids.AbsolutePath
	SecretMounts    []quadlet.MountSecret
	SecretEnvs      []quadlet.EnvSecret
	Devices         []quadlet.Device
	SecurityOpts    []string
	Groups          []string
	UserNS          *quadlet.UserNS
	HealthCheck     *quadlet.HealthCheck
	ShmSize         string
	ReadOnlyRootfs  bool
	NoNewPrivileges bool
	Service         quadlet.ServicePolicy
}

// Stack is the composer's input: a named group of containers sharing an
// optional network.
type Stack struct {
	Name       string
	Network    *Network
	Containers []Container
}

// GeneratedFiles partitions the composer's output into the container,
// network, and volume unit groups a generate operation reports separately.
type GeneratedFiles struct {
	Containers []quadlet.Unit
	Networks   []quadlet.Unit
	Volumes    []quadlet.Unit
}

// Compose builds every generated file for a Stack: topologically sorts
// containers by Requires (erroring on a cycle or an unknown dependency),
// emits the network unit when declared, emits one
// `.volume` unit per named volume, and invokes the quadlet generator for
// every container with its dependencies projected through BuildContainer.
func Compose(s Stack, caps quadlet.Capabilities, subs quadlet.Substitutions) result.Result[GeneratedFiles] {
	if err := validateNames(s); err != nil {
		return result.Err[GeneratedFiles](err)
	}

	order, err := topoSort(s)
	if err != nil {
		return result.Err[GeneratedFiles](err)
	}

	var out GeneratedFiles

	if s.Network != nil {
		out.Networks = append(out.Networks, quadlet.BuildNetwork(s.Name, s.Network.Internal))
	}

	out.Volumes = namedVolumeUnits(s)

	byName := map[string]Container{}
	for _, c := range s.Containers {
		byName[string(c.Name)] = c
	}
	for _, name := range order {
		c := byName[name]
		spec := quadlet.ContainerSpec{
			StackName:       s.Name,
			Name:            c.Name,
			Image:           c.Image,
			Description:     c.Description,
			Requires:        c.Requires,
			Wants:           c.Wants,
			Ports:           c.Ports,
			Volumes:         c.Volumes,
			Environment:     c.Environment,
			EnvironmentFile: c.EnvironmentFile,
			SecretMounts:    c.SecretMounts,
			SecretEnvs:      c.SecretEnvs,
			Devices:         c.Devices,
			SecurityOpts:    c.SecurityOpts,
			Groups:          c.Groups,
			UserNS:          c.UserNS,
			HealthCheck:     c.HealthCheck,
			ShmSize:         c.ShmSize,
			ReadOnlyRootfs:  c.ReadOnlyRootfs,
			NoNewPrivileges: c.NoNewPrivileges,
			Service:         c.Service,
			HasNetwork:      s.Network != nil,
		}
		out.Containers = append(out.Containers, quadlet.BuildContainer(spec, caps, subs))
	}

	return result.Ok(out)
}

func validateNames(s Stack) error {
	seen := map[string]bool{}
	for _, c := range s.Containers {
		if seen[string(c.Name)] {
			return errs.New(errs.Config, "DUPLICATE_CONTAINER_NAME", fmt.Sprintf("container name %q used more than once in stack %q", c.Name, s.Name))
		}
		seen[string(c.Name)] = true
	}
	for _, c := range s.Containers {
		for _, dep := range append(append([]string{}, c.Requires...), c.Wants...) {
			if !seen[dep] {
				return errs.New(errs.Config, "UNKNOWN_DEPENDENCY", fmt.Sprintf("container %q depends on unknown container %q", c.Name, dep))
			}
		}
	}
	return nil
}

// namedVolumeUnits emits one `<basename>.volume` unit per volume whose
// source is not an absolute path, deduplicated and sorted for determinism.
func namedVolumeUnits(s Stack) []quadlet.Unit {
	seen := map[string]bool{}
	var names []string
	for _, c := range s.Containers {
		for _, v := range c.Volumes {
			if v.IsBindMount() || v.Source == "" {
				continue
			}
			if !seen[v.Source] {
				seen[v.Source] = true
				names = append(names, v.Source)
			}
		}
	}
	sort.Strings(names)
	units := make([]quadlet.Unit, 0, len(names))
	for _, n := range names {
		units = append(units, quadlet.BuildVolume(n, ""))
	}
	return units
}

// Order returns the stack's containers in start order: a topological sort
// of Requires, lexicographic among equal-rank containers for reproducible
// fan-out. Stop order is the reverse of this slice.
func Order(s Stack) ([]string, error) {
	if err := validateNames(s); err != nil {
		return nil, err
	}
	return topoSort(s)
}

// topoSort orders containers so that every dependency of a container
// precedes it. Equal-rank containers are ordered lexicographically by name
// for reproducibility.
func topoSort(s Stack) ([]string, error) {
	inDegree := map[string]int{}
	edges := map[string][]string{} // dep -> dependents
	for _, c := range s.Containers {
		if _, ok := inDegree[string(c.Name)]; !ok {
			inDegree[string(c.Name)] = 0
		}
		for _, dep := range c.Requires {
			inDegree[string(c.Name)]++
			edges[dep] = append(edges[dep], string(c.Name))
		}
	}

	var ready []string
	for name, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	var order []string
	for len(ready) > 0 {
		sort.Strings(ready)
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		for _, dependent := range edges[next] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(order) != len(inDegree) {
		return nil, errs.New(errs.Config, "DEPENDENCY_CYCLE", fmt.Sprintf("cyclic container dependency in stack %q", s.Name))
	}
	return order, nil
}
