package kernel

// Arguments are the named inputs of a function invocation.
type Arguments map[string]any

// Clone returns a shallow copy.
func (a Arguments) Clone() Arguments {
	out := make(Arguments, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Merge returns a copy of a overlaid with other.
func (a Arguments) Merge(other map[string]any) Arguments {
	out := a.Clone()
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Missing returns the names from required that have no value.
func (a Arguments) Missing(required []string) []string {
	var missing []string
	for _, name := range required {
		if _, ok := a[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
