package pebble

import (
	"github.com/pebbletemplates/pebble-go/value"
)

// scope is one level of variables. A local scope hides the non-global
// scopes below it; macros render in one.
type scope struct {
	vars  map[string]value.Value
	local bool
}

func newScope(local bool) *scope {
	return &scope{vars: make(map[string]value.Value), local: local}
}

// scopeChain is the variable stack of a render. The first globals scopes
// hold the engine globals and stay visible from every local scope.
type scopeChain struct {
	scopes  []*scope
	globals int
}

func (c *scopeChain) push() {
	c.scopes = append(c.scopes, newScope(false))
}

func (c *scopeChain) pushLocal() {
	c.scopes = append(c.scopes, newScope(true))
}

func (c *scopeChain) pop() {
	c.scopes = c.scopes[:len(c.scopes)-1]
}

// visible calls fn for every scope a lookup may see, innermost first,
// stopping early when fn returns false.
func (c *scopeChain) visible(fn func(*scope) bool) {
	i := len(c.scopes) - 1
	for ; i >= c.globals; i-- {
		if !fn(c.scopes[i]) {
			return
		}
		if c.scopes[i].local {
			break
		}
	}
	for i = c.globals - 1; i >= 0; i-- {
		if !fn(c.scopes[i]) {
			return
		}
	}
}

// get looks a name up.
func (c *scopeChain) get(name string) (value.Value, bool) {
	var (
		v     value.Value
		found bool
	)
	c.visible(func(s *scope) bool {
		v, found = s.vars[name]
		return !found
	})
	return v, found
}

// set assigns to the nearest writable scope already holding the name, or
// to the innermost scope. The global scopes are never written.
func (c *scopeChain) set(name string, v value.Value) {
	for i := len(c.scopes) - 1; i >= c.globals; i-- {
		s := c.scopes[i]
		if _, ok := s.vars[name]; ok {
			s.vars[name] = v
			return
		}
		if s.local {
			break
		}
	}
	c.put(name, v)
}

// put binds a name in the innermost scope.
func (c *scopeChain) put(name string, v value.Value) {
	c.scopes[len(c.scopes)-1].vars[name] = v
}

// snapshot returns every visible variable, inner scopes shadowing outer
// ones, except for the ones named in skip.
func (c *scopeChain) snapshot(skip map[string]bool) *value.Map {
	var visible []*scope
	c.visible(func(s *scope) bool {
		visible = append(visible, s)
		return true
	})
	m := value.NewMap()
	for i := len(visible) - 1; i >= 0; i-- {
		for _, k := range sortedNames(visible[i].vars) {
			if !skip[k] {
				m.SetString(k, visible[i].vars[k])
			}
		}
	}
	return m
}

// copy returns a chain that can be used from another goroutine. The scope
// maps are copied; the values are shared.
func (c *scopeChain) copy() *scopeChain {
	out := &scopeChain{scopes: make([]*scope, len(c.scopes)), globals: c.globals}
	for i, s := range c.scopes {
		ns := &scope{vars: make(map[string]value.Value, len(s.vars)), local: s.local}
		for k, v := range s.vars {
			ns.vars[k] = v
		}
		out.scopes[i] = ns
	}
	return out
}
