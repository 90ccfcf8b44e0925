package paxml

import (
	"fmt"
	"strings"
)

// Frame is one active tag execution
type Frame struct {
	Entity *Entity
	Tag    TagIndex
}

// TagNode returns the tag the frame refers to
func (f Frame) TagNode() *Tag {
	if f.Entity == nil {
		return nil
	}
	return f.Entity.Tag(f.Tag)
}

// String renders the frame as entity:line <tag>
func (f Frame) String() string {
	tag := f.TagNode()
	if tag == nil {
		return "<detached>"
	}
	return fmt.Sprintf("%s:%d <%s>", f.Entity.Name(), tag.Line(), tag.Name())
}

// Stack is the call stack of a Context chain. Frames are pushed and popped
// around every tag execution; the innermost frame is last.
type Stack struct {
	frames []Frame
	dying  bool
}

// Push adds a frame
func (s *Stack) Push(f Frame) {
	s.frames = append(s.frames, f)
}

// Pop removes the innermost frame
func (s *Stack) Pop() (Frame, bool) {
	if len(s.frames) == 0 {
		return Frame{}, false
	}
	f := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	return f, true
}

// Top returns the innermost frame
func (s *Stack) Top() (Frame, bool) {
	if len(s.frames) == 0 {
		return Frame{}, false
	}
	return s.frames[len(s.frames)-1], true
}

// Len returns the number of active frames
func (s *Stack) Len() int { return len(s.frames) }

// IsEmpty reports whether no tag is executing
func (s *Stack) IsEmpty() bool { return len(s.frames) == 0 }

// Frames returns a copy of the active frames, innermost first
func (s *Stack) Frames() []Frame {
	out := make([]Frame, len(s.frames))
	for i, f := range s.frames {
		out[len(s.frames)-1-i] = f
	}
	return out
}

// Die marks the chain as exiting; no further tag starts
func (s *Stack) Die() { s.dying = true }

// Dying reports whether the chain is exiting
func (s *Stack) Dying() bool { return s.dying }

// Traverse visits the call path innermost first. The visitor sees one frame
// per entity boundary, plus every frame of an entity-invoking tag. It may
// stop the walk by returning false.
func (s *Stack) Traverse(visit func(e *Entity, tag *Tag) bool) {
	var last *Entity
	for i := len(s.frames) - 1; i >= 0; i-- {
		f := s.frames[i]
		tag := f.TagNode()
		if tag == nil || tag.Index() == RootTag {
			continue
		}
		_, invokes := tag.Behavior().(EntityInvoker)
		if f.Entity == last && !invokes {
			continue
		}
		last = f.Entity
		if !visit(f.Entity, tag) {
			return
		}
	}
}

// String renders the call path, one line per visited frame
func (s *Stack) String() string {
	var b strings.Builder
	s.Traverse(func(e *Entity, tag *Tag) bool {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "  at %s:%d <%s>", e.Name(), tag.Line(), tag.Name())
		return true
	})
	return b.String()
}
