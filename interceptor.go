// FILE: atbashEE/config/interceptor.go
package config

import (
	"fmt"
	"maps"
	"math"
	"slices"
)

// Interceptor priorities. Interceptors with a higher priority sit further out in the
// chain and see a lookup before those with a lower priority.
const (
	PriorityPlatform    = 0
	PriorityLibrary     = 3000
	PriorityApplication = 5000

	// DefaultInterceptorPriority applies to registrations that leave Priority as PriorityUnset.
	DefaultInterceptorPriority = PriorityApplication

	// PriorityUnset marks a registration without an explicit priority.
	PriorityUnset = math.MinInt32

	ProfileInterceptorPriority    = PriorityLibrary + 200
	ExpressionInterceptorPriority = PriorityLibrary + 300
)

// Interceptor is one stage of the lookup chain. It may answer a lookup itself,
// rewrite the name before delegating, or transform what the rest of the chain returns.
// Interceptors are shared by concurrent lookups and must not mutate state after construction.
type Interceptor interface {
	// Intercept resolves name. Returning (nil, nil) means absent.
	Intercept(ctx Context, name string) (*ConfigValue, error)

	// Names enumerates the property names visible through this stage.
	Names(ctx Context) ([]string, error)
}

// InterceptorFactory creates an interceptor on top of the chain built so far.
type InterceptorFactory interface {
	NewInterceptor(below Chain) (Interceptor, error)
}

// InterceptorFactoryFunc adapts a function to InterceptorFactory.
type InterceptorFactoryFunc func(below Chain) (Interceptor, error)

func (f InterceptorFactoryFunc) NewInterceptor(below Chain) (Interceptor, error) {
	return f(below)
}

// InterceptorRegistration names a factory and the priority used to order instantiation.
type InterceptorRegistration struct {
	Name     string
	Priority int
	Factory  InterceptorFactory
}

// Shared registers an already constructed interceptor. Every build reuses the same instance.
func Shared(name string, priority int, interceptor Interceptor) InterceptorRegistration {
	return InterceptorRegistration{
		Name:     name,
		Priority: priority,
		Factory: InterceptorFactoryFunc(func(Chain) (Interceptor, error) {
			return interceptor, nil
		}),
	}
}

func (r InterceptorRegistration) priority() int {
	if r.Priority == PriorityUnset {
		return DefaultInterceptorPriority
	}
	return r.Priority
}

// sortRegistrations orders registrations by ascending priority; equal priorities keep registration order.
func sortRegistrations(regs []InterceptorRegistration) []InterceptorRegistration {
	sorted := slices.Clone(regs)
	slices.SortStableFunc(sorted, func(a, b InterceptorRegistration) int {
		pa, pb := a.priority(), b.priority()
		switch {
		case pa < pb:
			return -1
		case pa > pb:
			return 1
		}
		return 0
	})
	return sorted
}

// link is one immutable node of the chain. A nil next terminates the chain.
type link struct {
	interceptor Interceptor
	next        *link
}

// expansion is the persistent stack of names currently being expanded by one lookup.
type expansion struct {
	name   string
	parent *expansion
}

func (e *expansion) contains(name string) bool {
	for cur := e; cur != nil; cur = cur.parent {
		if cur.name == name {
			return true
		}
	}
	return false
}

// Context is the handle an interceptor receives for the rest of the chain during one call.
type Context struct {
	next      *link
	head      *link
	expanding *expansion
}

// Proceed passes the lookup to the next stage. The end of the chain answers absent.
func (c Context) Proceed(name string) (*ConfigValue, error) {
	if c.next == nil {
		return nil, nil
	}
	return c.next.interceptor.Intercept(Context{next: c.next.next, head: c.head, expanding: c.expanding}, name)
}

// ProceedNames passes enumeration to the next stage.
func (c Context) ProceedNames() ([]string, error) {
	if c.next == nil {
		return nil, nil
	}
	return c.next.interceptor.Names(Context{next: c.next.next, head: c.head, expanding: c.expanding})
}

// Resolve looks name up from the outermost stage of the chain, keeping the expansion stack of this call.
func (c Context) Resolve(name string) (*ConfigValue, error) {
	if c.head == nil {
		return nil, nil
	}
	return c.head.interceptor.Intercept(Context{next: c.head.next, head: c.head, expanding: c.expanding}, name)
}

// Expanding reports whether name is being expanded further up the current call.
func (c Context) Expanding(name string) bool {
	return c.expanding.contains(name)
}

// WithExpanding returns a context that records name as being expanded.
func (c Context) WithExpanding(name string) Context {
	c.expanding = &expansion{name: name, parent: c.expanding}
	return c
}

// Chain is an immutable lookup pipeline. The zero Chain answers absent for everything.
type Chain struct {
	top *link
}

// push returns a new chain with interceptor as its outermost stage.
func (ch Chain) push(interceptor Interceptor) Chain {
	return Chain{top: &link{interceptor: interceptor, next: ch.top}}
}

// Value resolves name starting at the outermost stage.
func (ch Chain) Value(name string) (*ConfigValue, error) {
	return Context{next: ch.top, head: ch.top}.Proceed(name)
}

// Names enumerates property names starting at the outermost stage.
func (ch Chain) Names() ([]string, error) {
	return Context{next: ch.top, head: ch.top}.ProceedNames()
}

// Len returns the number of stages in the chain.
func (ch Chain) Len() int {
	n := 0
	for l := ch.top; l != nil; l = l.next {
		n++
	}
	return n
}

// interceptors lists the stages from outermost to innermost.
func (ch Chain) interceptors() []Interceptor {
	var out []Interceptor
	for l := ch.top; l != nil; l = l.next {
		out = append(out, l.interceptor)
	}
	return out
}

// retrievalInterceptor terminates the chain by scanning the ordered sources.
type retrievalInterceptor struct {
	sources []prioritizedSource
}

func newRetrievalInterceptor(sources []prioritizedSource) *retrievalInterceptor {
	return &retrievalInterceptor{sources: slices.Clone(sources)}
}

func (r *retrievalInterceptor) Intercept(_ Context, name string) (*ConfigValue, error) {
	for _, ps := range r.sources {
		v, found, err := ps.source.Lookup(name)
		if err != nil {
			return nil, fmt.Errorf("source %s: lookup %q: %w", ps.source.Name(), name, err)
		}
		if found {
			return &ConfigValue{
				Name:          name,
				Value:         v,
				RawValue:      v,
				SourceName:    ps.source.Name(),
				SourceOrdinal: ps.ordinal,
			}, nil
		}
	}
	return nil, nil
}

func (r *retrievalInterceptor) Names(Context) ([]string, error) {
	seen := make(map[string]struct{})
	for _, ps := range r.sources {
		names, err := ps.source.PropertyNames()
		if err != nil {
			return nil, fmt.Errorf("source %s: enumerate names: %w", ps.source.Name(), err)
		}
		for _, n := range names {
			seen[n] = struct{}{}
		}
	}
	return slices.Collect(maps.Keys(seen)), nil
}

// propertyNamesInterceptor freezes the enumerable names at build time.
type propertyNamesInterceptor struct {
	names []string
}

func newPropertyNamesInterceptor(names []string) *propertyNamesInterceptor {
	frozen := slices.Clone(names)
	slices.Sort(frozen)
	return &propertyNamesInterceptor{names: slices.Compact(frozen)}
}

func (p *propertyNamesInterceptor) Intercept(ctx Context, name string) (*ConfigValue, error) {
	return ctx.Proceed(name)
}

func (p *propertyNamesInterceptor) Names(Context) ([]string, error) {
	return slices.Clone(p.names), nil
}
