package ui

import (
	"slices"

	"github.com/rivo/tview"
)

// Pages is the navigation stack of the TUI. The root page is always at the
// bottom and cannot be left; opening a page that is already on the stack
// returns to it instead of stacking it twice.
type Pages struct {
	*tview.Pages
	root     string
	stack    []string
	onChange func(trail []string)
}

// NewPages creates a stack holding only root. Pages must be added with
// AddPage before Unwind or Open shows them.
func NewPages(root string) *Pages {
	return &Pages{Pages: tview.NewPages(), root: root, stack: []string{root}}
}

// SetOnChange sets a callback receiving the new trail after every change.
func (p *Pages) SetOnChange(fn func(trail []string)) {
	p.onChange = fn
}

// Open shows name on top of the stack, popping back to it when it is
// already open further down.
func (p *Pages) Open(name string) {
	if i := slices.Index(p.stack, name); i >= 0 {
		p.stack = p.stack[:i+1]
	} else {
		p.stack = append(p.stack, name)
	}
	p.show()
}

// Back closes the top page and returns its name. At the root it does
// nothing and returns "".
func (p *Pages) Back() string {
	if len(p.stack) <= 1 {
		return ""
	}
	top := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]
	p.show()
	return top
}

// Unwind closes everything above the root.
func (p *Pages) Unwind() {
	p.stack = p.stack[:1]
	p.show()
}

// Has reports whether name is open anywhere on the stack.
func (p *Pages) Has(name string) bool {
	return slices.Contains(p.stack, name)
}

// Top returns the page currently shown.
func (p *Pages) Top() string {
	return p.stack[len(p.stack)-1]
}

// Trail returns a copy of the stack from the root up.
func (p *Pages) Trail() []string {
	return slices.Clone(p.stack)
}

func (p *Pages) show() {
	top := p.Top()
	for _, name := range p.GetPageNames(false) {
		if name != top {
			p.HidePage(name)
		}
	}
	p.ShowPage(top)
	p.SendToFront(top)
	if p.onChange != nil {
		p.onChange(p.Trail())
	}
}
