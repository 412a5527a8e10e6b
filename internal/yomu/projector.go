package yomu

// Projector is a read/write mirror of the active session's viewer
// sub-state, so viewer code need not know about sessions. It is a pure
// projection (active session → viewer view) plus explicit merge-back
// paths; the registry stays the single source of truth.
//
// The projector only ever touches the active session. Keeping a hidden
// session's viewer warm goes through Registry.UpdateSession directly.
type Projector struct {
	reg *Registry
}

// NewProjector creates a projector over reg.
func NewProjector(reg *Registry) *Projector {
	return &Projector{reg: reg}
}

// Viewer returns a snapshot of the active session's viewer state. ok is
// false while no folder has been opened in that session. The snapshot is
// a copy; callers must re-fetch after any await point because the active
// session may have changed underneath them.
func (p *Projector) Viewer() (ViewerState, bool) {
	v := p.reg.Active().Viewer
	if v == nil {
		return ViewerState{}, false
	}
	return *v, true
}

// SetImages replaces the active session's viewer state wholesale for a new
// folder load: index 0, scroll 0, default zoom, a fresh load generation.
// Folder switches always start unpositioned; a resumed position is applied
// immediately after via SetCurrentIndex and SetZoom.
func (p *Projector) SetImages(folderKey string, meta FolderMeta, images []ImageDescriptor) {
	gen := p.reg.nextGeneration()
	p.reg.UpdateActive(func(s *Session) {
		s.Viewer = &ViewerState{
			Folder:     meta,
			FolderKey:  folderKey,
			Images:     images,
			Index:      0,
			Mode:       ModeContinuous,
			Zoom:       DefaultZoom,
			ScrollFrac: 0,
			Generation: gen,
		}
	})
}

// SetCurrentIndex moves the reading position. Out-of-range indices are
// ignored, never clamped or surfaced.
func (p *Projector) SetCurrentIndex(i int) {
	v := p.reg.Active().Viewer
	if v == nil || i < 0 || i >= len(v.Images) {
		return
	}
	if v.Index == i {
		return
	}
	p.reg.UpdateActive(func(s *Session) {
		s.Viewer.Index = i
	})
}

// NextImage advances one page, clamped at the end.
func (p *Projector) NextImage() {
	if v := p.reg.Active().Viewer; v != nil {
		p.SetCurrentIndex(v.Index + 1)
	}
}

// PrevImage steps back one page, clamped at the start.
func (p *Projector) PrevImage() {
	if v := p.reg.Active().Viewer; v != nil {
		p.SetCurrentIndex(v.Index - 1)
	}
}

// SetZoom sets the zoom level, clamped to [MinZoom, MaxZoom].
func (p *Projector) SetZoom(z float64) {
	if p.reg.Active().Viewer == nil {
		return
	}
	if z < MinZoom {
		z = MinZoom
	}
	if z > MaxZoom {
		z = MaxZoom
	}
	p.reg.UpdateActive(func(s *Session) {
		s.Viewer.Zoom = z
	})
}

// SetScrollFrac records the viewer's scroll position as a fraction of the
// total content height, clamped to [0, 1].
func (p *Projector) SetScrollFrac(f float64) {
	if p.reg.Active().Viewer == nil {
		return
	}
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	p.reg.UpdateActive(func(s *Session) {
		s.Viewer.ScrollFrac = f
	})
}

// SetMode switches between continuous and paged rendering.
func (p *Projector) SetMode(m ViewerMode) {
	if p.reg.Active().Viewer == nil {
		return
	}
	p.reg.UpdateActive(func(s *Session) {
		s.Viewer.Mode = m
	})
}

// SetLoading flags the viewer as waiting on a folder listing.
func (p *Projector) SetLoading(loading bool) {
	if p.reg.Active().Viewer == nil {
		return
	}
	p.reg.UpdateActive(func(s *Session) {
		s.Viewer.Loading = loading
	})
}
