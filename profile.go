// FILE: atbashEE/config/profile.go
package config

import (
	"slices"
	"strings"
)

// ProfileProperty selects the active profiles as a comma separated list.
// The first listed profile has the highest priority.
const ProfileProperty = "mp.config.profile"

// DefaultProfilePrefix marks a profile-qualified name: %dev.server.port.
const DefaultProfilePrefix = "%"

// ProfileAware is implemented by interceptors that expose the active profile set.
type ProfileAware interface {
	Profiles() []string
}

// ProfileInterceptor prefers profile-qualified variants of a name over the plain name.
type ProfileInterceptor struct {
	prefix   string
	profiles []string
}

// NewProfileInterceptor resolves the active profiles once. Explicit profiles take
// precedence; otherwise ProfileProperty is read through the chain below.
func NewProfileInterceptor(below Chain, prefix string, explicit []string) (*ProfileInterceptor, error) {
	if prefix == "" {
		prefix = DefaultProfilePrefix
	}
	profiles := slices.Clone(explicit)
	if len(profiles) == 0 {
		v, err := below.Value(ProfileProperty)
		if err != nil {
			return nil, err
		}
		if v != nil {
			profiles = splitList(v.Value)
		}
	}
	return &ProfileInterceptor{prefix: prefix, profiles: profiles}, nil
}

// profileFactory builds a fresh ProfileInterceptor for every chain.
func profileFactory(prefix string, explicit []string) InterceptorFactory {
	return profileInterceptorFactory{prefix: prefix, explicit: explicit}
}

// profileSeeder is implemented by interceptor factories that can take an
// already resolved profile set instead of reading ProfileProperty again.
type profileSeeder interface {
	withResolvedProfiles(profiles []string) InterceptorFactory
}

type profileInterceptorFactory struct {
	prefix   string
	explicit []string
	resolved bool
}

func (f profileInterceptorFactory) NewInterceptor(below Chain) (Interceptor, error) {
	if f.resolved {
		prefix := f.prefix
		if prefix == "" {
			prefix = DefaultProfilePrefix
		}
		return &ProfileInterceptor{prefix: prefix, profiles: slices.Clone(f.explicit)}, nil
	}
	return NewProfileInterceptor(below, f.prefix, f.explicit)
}

// withResolvedProfiles fixes the profile set, even when it is empty.
func (f profileInterceptorFactory) withResolvedProfiles(profiles []string) InterceptorFactory {
	f.explicit = slices.Clone(profiles)
	f.resolved = true
	return f
}

// seedProfiles returns regs with every profile-aware factory bound to profiles.
func seedProfiles(regs []InterceptorRegistration, profiles []string) []InterceptorRegistration {
	seeded := slices.Clone(regs)
	for i, reg := range seeded {
		if s, ok := reg.Factory.(profileSeeder); ok {
			seeded[i].Factory = s.withResolvedProfiles(profiles)
		}
	}
	return seeded
}

// Profiles returns a copy of the active profiles in priority order.
func (p *ProfileInterceptor) Profiles() []string {
	return slices.Clone(p.profiles)
}

func (p *ProfileInterceptor) Intercept(ctx Context, name string) (*ConfigValue, error) {
	if len(p.profiles) > 0 && !strings.HasPrefix(name, p.prefix) {
		for _, profile := range p.profiles {
			v, err := ctx.Proceed(p.prefix + profile + "." + name)
			if err != nil {
				return nil, err
			}
			if v != nil {
				hit := *v
				hit.Name = name
				return &hit, nil
			}
		}
	}
	return ctx.Proceed(name)
}

func (p *ProfileInterceptor) Names(ctx Context) ([]string, error) {
	return ctx.ProceedNames()
}
