package apitest

import (
	"fmt"
	"sort"
)

// Record is one stored object. Field names match the API's JSON.
type Record map[string]any

func (r Record) clone() Record {
	cp := make(Record, len(r))
	for k, v := range r {
		cp[k] = v
	}
	return cp
}

// ID returns the record's id, or 0.
func (r Record) ID() int64 {
	id, _ := r["id"].(int64)
	return id
}

// Str renders field k for comparisons against query parameters.
func (r Record) Str(k string) string {
	v, ok := r[k]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// Bool reports field k as a boolean. Missing fields are false.
func (r Record) Bool(k string) bool {
	b, _ := r[k].(bool)
	return b
}

type collection struct {
	nextID int64
	items  map[int64]Record
}

func newCollection() *collection {
	return &collection{nextID: 1, items: make(map[int64]Record)}
}

func (c *collection) insert(rec Record) Record {
	rec = rec.clone()
	rec["id"] = c.nextID
	c.items[c.nextID] = rec
	c.nextID++
	return rec.clone()
}

func (c *collection) get(id int64) (Record, bool) {
	rec, ok := c.items[id]
	if !ok {
		return nil, false
	}
	return rec.clone(), true
}

func (c *collection) find(match func(Record) bool) (Record, bool) {
	for _, rec := range c.sorted(false) {
		if match(rec) {
			return rec, true
		}
	}
	return nil, false
}

func (c *collection) update(id int64, fields Record) (Record, bool) {
	rec, ok := c.items[id]
	if !ok {
		return nil, false
	}
	for k, v := range fields {
		if k == "id" {
			continue
		}
		rec[k] = v
	}
	return rec.clone(), true
}

func (c *collection) remove(id int64) bool {
	if _, ok := c.items[id]; !ok {
		return false
	}
	delete(c.items, id)
	return true
}

// sorted returns copies ordered by id; newest first when desc.
func (c *collection) sorted(desc bool) []Record {
	out := make([]Record, 0, len(c.items))
	for _, rec := range c.items {
		out = append(out, rec.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if desc {
			return out[i].ID() > out[j].ID()
		}
		return out[i].ID() < out[j].ID()
	})
	return out
}

func (c *collection) filter(match func(Record) bool) []Record {
	out := make([]Record, 0)
	for _, rec := range c.sorted(true) {
		if match == nil || match(rec) {
			out = append(out, rec)
		}
	}
	return out
}

func (c *collection) count(match func(Record) bool) int {
	n := 0
	for _, rec := range c.items {
		if match == nil || match(rec) {
			n++
		}
	}
	return n
}
