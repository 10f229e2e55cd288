package scope

// Page is an in-memory Context driven directly by its owner. Hosts use it
// to model a tab; tests use it to script lifecycle signals.
type Page struct {
	name      string
	visible   bool
	destroyed bool
	observers []Observer
}

// NewPage creates a page with the given initial visibility.
func NewPage(name string, visible bool) *Page {
	return &Page{name: name, visible: visible}
}

// Name returns the page name.
func (p *Page) Name() string {
	return p.name
}

// String returns the page name.
func (p *Page) String() string {
	return p.name
}

// Visible implements Context.
func (p *Page) Visible() bool {
	return p.visible && !p.destroyed
}

// Destroyed reports whether Destroy was called.
func (p *Page) Destroyed() bool {
	return p.destroyed
}

// AddObserver implements Context. Adding the same observer twice is a no-op.
func (p *Page) AddObserver(o Observer) {
	for _, existing := range p.observers {
		if existing == o {
			return
		}
	}
	p.observers = append(p.observers, o)
}

// RemoveObserver implements Context.
func (p *Page) RemoveObserver(o Observer) {
	for i, existing := range p.observers {
		if existing == o {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			return
		}
	}
}

// ObserverCount returns the number of registered observers.
func (p *Page) ObserverCount() int {
	return len(p.observers)
}

// Show makes the page visible and notifies observers on a change.
func (p *Page) Show() {
	if p.destroyed || p.visible {
		return
	}
	p.visible = true
	p.each(Observer.OnShown)
}

// Hide makes the page hidden and notifies observers on a change.
func (p *Page) Hide() {
	if p.destroyed || !p.visible {
		return
	}
	p.visible = false
	p.each(Observer.OnHidden)
}

// Navigate reports a committed navigation.
func (p *Page) Navigate(nav Navigation) {
	if p.destroyed {
		return
	}
	p.each(func(o Observer) { o.OnNavigationCommitted(nav) })
}

// MoveToWindow reports that the page moved to another window.
func (p *Page) MoveToWindow() {
	if p.destroyed {
		return
	}
	p.each(Observer.OnWindowChanged)
}

// Destroy tears the page down. It is reported once.
func (p *Page) Destroy() {
	if p.destroyed {
		return
	}
	p.destroyed = true
	p.each(Observer.OnDestroyed)
	p.observers = nil
}

// each calls fn on a snapshot of the observers, since observers may
// unregister themselves from within the callback.
func (p *Page) each(fn func(Observer)) {
	snapshot := make([]Observer, len(p.observers))
	copy(snapshot, p.observers)
	for _, o := range snapshot {
		fn(o)
	}
}
