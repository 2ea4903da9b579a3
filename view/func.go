package view

// Func wraps a single action function into a view bound to the given HTTP
// methods. The function may be either the inline or the context-taking
// form.
func Func(name string, methods []string, fn any) *View {
	v := New(name)
	for _, m := range methods {
		v.Handle(m, fn)
	}
	return v
}
