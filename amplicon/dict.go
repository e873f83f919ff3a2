// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package amplicon

// orderedBuckets is a string -> *Bucket map that remembers insertion order.
// Deleted keys leave holes in order that are compacted lazily.
type orderedBuckets struct {
	entries map[string]orderedEntry
	order   []string
}

type orderedEntry struct {
	b   *Bucket
	pos int // index of the live copy of the key in order.
}

func newOrderedBuckets() orderedBuckets {
	return orderedBuckets{entries: map[string]orderedEntry{}}
}

func (o *orderedBuckets) get(key string) *Bucket {
	return o.entries[key].b
}

// put adds or replaces the bucket for key. A new key goes last; a replaced
// key keeps its position.
func (o *orderedBuckets) put(key string, b *Bucket) {
	if e, ok := o.entries[key]; ok {
		e.b = b
		o.entries[key] = e
		return
	}
	o.entries[key] = orderedEntry{b: b, pos: len(o.order)}
	o.order = append(o.order, key)
}

func (o *orderedBuckets) delete(key string) bool {
	if _, ok := o.entries[key]; !ok {
		return false
	}
	delete(o.entries, key)
	if len(o.order) > 64 && len(o.order) > 2*len(o.entries) {
		o.order = o.keys()
		for i, k := range o.order {
			e := o.entries[k]
			e.pos = i
			o.entries[k] = e
		}
	}
	return true
}

// keys returns a snapshot of the live keys in insertion order.
func (o *orderedBuckets) keys() []string {
	keys := make([]string, 0, len(o.entries))
	for i, k := range o.order {
		if e, ok := o.entries[k]; ok && e.pos == i {
			keys = append(keys, k)
		}
	}
	return keys
}

func (o *orderedBuckets) len() int { return len(o.entries) }

// Dict is a bucket dictionary: buckets indexed by their key, iterated in
// insertion order.
type Dict struct {
	m orderedBuckets
}

// NewDict creates an empty dictionary.
func NewDict() *Dict {
	return &Dict{m: newOrderedBuckets()}
}

// Put adds b under b.Key(). If the key is already present, its bucket is
// replaced in place.
func (d *Dict) Put(b *Bucket) { d.m.put(b.Key(), b) }

// Get returns the bucket with the given key, or nil.
func (d *Dict) Get(key string) *Bucket { return d.m.get(key) }

// Delete removes key and reports whether it was present.
func (d *Dict) Delete(key string) bool { return d.m.delete(key) }

// Keys returns a snapshot of the keys in iteration order. The snapshot is
// not affected by later changes to the dictionary.
func (d *Dict) Keys() []string { return d.m.keys() }

// Len returns the number of buckets.
func (d *Dict) Len() int { return d.m.len() }

// NumReads returns the total number of reads over all buckets.
func (d *Dict) NumReads() int {
	n := 0
	for _, e := range d.m.entries {
		n += e.b.Len()
	}
	return n
}

// Buckets returns the buckets in iteration order.
func (d *Dict) Buckets() []*Bucket {
	keys := d.Keys()
	buckets := make([]*Bucket, len(keys))
	for i, k := range keys {
		buckets[i] = d.Get(k)
	}
	return buckets
}

// allFinalized reports whether every bucket has been marked congruent.
func (d *Dict) allFinalized() bool {
	for _, e := range d.m.entries {
		if !e.b.Finalized() {
			return false
		}
	}
	return true
}

// owners maps every read id to the key of the bucket holding it.
func (d *Dict) owners() map[string]string {
	owners := make(map[string]string, d.NumReads())
	for _, k := range d.Keys() {
		for _, id := range d.Get(k).IDs() {
			owners[id] = k
		}
	}
	return owners
}

// Registry maps finalized consensus sequences to the bucket that produced
// them. Each entry stands for one resolved allele group. Entries are
// iterated in insertion order; replacing an entry keeps its position.
type Registry struct {
	m orderedBuckets
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{m: newOrderedBuckets()}
}

// Put adds or replaces the entry for consensus.
func (r *Registry) Put(consensus string, b *Bucket) { r.m.put(consensus, b) }

// Get returns the bucket registered under consensus, or nil.
func (r *Registry) Get(consensus string) *Bucket { return r.m.get(consensus) }

// Keys returns a snapshot of the consensus sequences in iteration order.
func (r *Registry) Keys() []string { return r.m.keys() }

// Len returns the number of entries.
func (r *Registry) Len() int { return r.m.len() }

// RegistryEntry is one consensus -> bucket pair of a Registry.
type RegistryEntry struct {
	Consensus string
	Bucket    *Bucket
}

// Entries returns the entries in iteration order.
func (r *Registry) Entries() []RegistryEntry {
	keys := r.Keys()
	entries := make([]RegistryEntry, len(keys))
	for i, k := range keys {
		entries[i] = RegistryEntry{k, r.Get(k)}
	}
	return entries
}
