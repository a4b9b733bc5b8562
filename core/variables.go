package core

import (
	"iter"
	"strings"
)

// MainKey is the name of the implicit default variable that carries a
// function's primary input and output.
const MainKey = "input"

type variable struct {
	name  string
	value string
}

// ContextVariables is an ordered bag of string variables with
// case-insensitive keys. The "input" variable always exists and is the
// implicit argument and result of every function.
//
// ContextVariables is not safe for concurrent mutation. Clone it before
// handing it to another goroutine.
type ContextVariables struct {
	order  []string
	values map[string]variable
}

// NewContextVariables creates a variable bag whose input is set to content.
func NewContextVariables(content string) *ContextVariables {
	v := &ContextVariables{values: make(map[string]variable)}
	v.Set(MainKey, content)
	return v
}

// Input returns the current value of the input variable.
func (v *ContextVariables) Input() string {
	value, _ := v.Get(MainKey)
	return value
}

// Update replaces the input variable and returns the receiver.
func (v *ContextVariables) Update(content string) *ContextVariables {
	v.Set(MainKey, content)
	return v
}

// UpdateFrom copies every variable of other into v. When merge is false the
// existing variables are discarded first.
func (v *ContextVariables) UpdateFrom(other *ContextVariables, merge bool) *ContextVariables {
	if other == nil {
		return v
	}
	if !merge {
		v.order = nil
		v.values = make(map[string]variable, len(other.values))
	}
	for name, value := range other.All() {
		v.Set(name, value)
	}
	if _, ok := v.values[MainKey]; !ok {
		v.Set(MainKey, "")
	}
	return v
}

// Set stores value under name, keeping the position of an existing key.
func (v *ContextVariables) Set(name, value string) {
	key := strings.ToLower(name)
	if _, ok := v.values[key]; !ok {
		v.order = append(v.order, key)
	}
	v.values[key] = variable{name: name, value: value}
}

// Get returns the value stored under name.
func (v *ContextVariables) Get(name string) (string, bool) {
	entry, ok := v.values[strings.ToLower(name)]
	return entry.value, ok
}

// Has reports whether a variable exists.
func (v *ContextVariables) Has(name string) bool {
	_, ok := v.values[strings.ToLower(name)]
	return ok
}

// Delete removes a variable. The input variable is reset to the empty
// string instead of being removed.
func (v *ContextVariables) Delete(name string) {
	key := strings.ToLower(name)
	if key == MainKey {
		v.Set(MainKey, "")
		return
	}
	if _, ok := v.values[key]; !ok {
		return
	}
	delete(v.values, key)
	for i, k := range v.order {
		if k == key {
			v.order = append(v.order[:i], v.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of variables including input.
func (v *ContextVariables) Len() int { return len(v.order) }

// All iterates the variables in insertion order using their original names.
func (v *ContextVariables) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, key := range v.order {
			entry := v.values[key]
			if !yield(entry.name, entry.value) {
				return
			}
		}
	}
}

// Clone returns an independent copy.
func (v *ContextVariables) Clone() *ContextVariables {
	c := &ContextVariables{
		order:  make([]string, len(v.order)),
		values: make(map[string]variable, len(v.values)),
	}
	copy(c.order, v.order)
	for k, e := range v.values {
		c.values[k] = e
	}
	return c
}

// String returns the input value.
func (v *ContextVariables) String() string { return v.Input() }
