package model

// Content is an ordered collection of tasks and perspectives, unique by id.
// Order follows first appearance so display stays stable across folds.
type Content struct {
	Tasks        []Task
	Perspectives []Perspective
}

// NewTaskContent returns a delta holding a single task.
func NewTaskContent(t Task) Content {
	return Content{Tasks: []Task{t}}
}

// Len returns the number of records in c.
func (c Content) Len() int {
	return len(c.Tasks) + len(c.Perspectives)
}

// Task looks up a task by id.
func (c Content) Task(id string) (Task, bool) {
	for _, t := range c.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// Merge folds a later delta into c. A record whose id is already present is
// replaced whole; new ids are appended in delta order.
func (c *Content) Merge(delta Content) {
	c.Tasks = mergeByID(c.Tasks, delta.Tasks, func(t Task) string { return t.ID })
	c.Perspectives = mergeByID(c.Perspectives, delta.Perspectives, func(p Perspective) string { return p.ID })
}

// Clone returns a deep copy of c.
func (c Content) Clone() Content {
	out := Content{}
	if c.Tasks != nil {
		out.Tasks = make([]Task, len(c.Tasks))
		for i, t := range c.Tasks {
			out.Tasks[i] = t.Clone()
		}
	}
	if c.Perspectives != nil {
		out.Perspectives = make([]Perspective, len(c.Perspectives))
		for i, p := range c.Perspectives {
			out.Perspectives[i] = p.Clone()
		}
	}
	return out
}

func mergeByID[T any](base, delta []T, id func(T) string) []T {
	if len(delta) == 0 {
		return base
	}
	index := make(map[string]int, len(base))
	for i, v := range base {
		index[id(v)] = i
	}
	for _, v := range delta {
		if i, ok := index[id(v)]; ok {
			base[i] = v
			continue
		}
		index[id(v)] = len(base)
		base = append(base, v)
	}
	return base
}
