package pebble

// hierarchy is the inheritance chain of a render, most-derived template
// first, with a cursor on the template currently rendering.
type hierarchy struct {
	templates []*Template
	current   int
}

func newHierarchy(t *Template) *hierarchy {
	return &hierarchy{templates: []*Template{t}}
}

// pushAncestor appends the parent of the last template in the chain.
func (h *hierarchy) pushAncestor(t *Template) {
	h.templates = append(h.templates, t)
}

func (h *hierarchy) ascend() { h.current++ }

func (h *hierarchy) descend() { h.current-- }

func (h *hierarchy) parent() *Template {
	if h.current+1 < len(h.templates) {
		return h.templates[h.current+1]
	}
	return nil
}

func (h *hierarchy) child() *Template {
	if h.current > 0 {
		return h.templates[h.current-1]
	}
	return nil
}

func (h *hierarchy) copy() *hierarchy {
	out := &hierarchy{templates: make([]*Template, len(h.templates)), current: h.current}
	copy(out.templates, h.templates)
	return out
}
