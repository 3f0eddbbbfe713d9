// Package strpool implements the interned string pool from spec §4.2: a
// deduplicating store of source identifiers and literal text, keyed on
// (hash, length, bytewise equality) so that re-interning identical content
// always returns the same object and pointer equality reduces to content
// equality (spec §8 property 1).
package strpool

import "github.com/vela-lang/velac/internal/arena"

// String is an interned byte string. Two Strings with equal Bytes are
// always the same *String value — callers may compare pointers directly.
type String struct {
	Bytes []byte
	Hash  uint32
}

func (s *String) String() string { return string(s.Bytes) }

// Pool interns strings for one compile session. Metadata (the bucket
// table) lives in the pool's own map; the String payloads are allocated
// from a dedicated arena so they outlive the pool itself if transferred
// (spec §4.2 "String object storage is separated from metadata object
// storage").
type Pool struct {
	buckets map[uint32][]*String
	arena   *arena.Pool[String]
	count   int
}

// New creates an empty pool.
func New() *Pool {
	return &Pool{
		buckets: make(map[uint32][]*String),
		arena:   arena.NewPool[String](512),
	}
}

// fnv1a32 is the 32-bit FNV-1a hash named in spec §4.2.
func fnv1a32(b []byte) uint32 {
	const (
		offset = 2166136261
		prime  = 16777619
	)
	h := uint32(offset)
	for _, c := range b {
		h ^= uint32(c)
		h *= prime
	}
	return h
}

// Intern returns the canonical *String for b, allocating a new one only if
// no bucket entry with equal length and bytes already exists.
func (p *Pool) Intern(b []byte) *String {
	h := fnv1a32(b)
	for _, cand := range p.buckets[h] {
		if len(cand.Bytes) == len(b) && bytesEqual(cand.Bytes, b) {
			return cand
		}
	}
	s := p.arena.New()
	s.Bytes = append([]byte(nil), b...)
	s.Hash = h
	p.buckets[h] = append(p.buckets[h], s)
	p.count++
	return s
}

// InternString is a convenience wrapper over Intern for Go string inputs.
func (p *Pool) InternString(s string) *String {
	return p.Intern([]byte(s))
}

// Len returns the number of distinct interned strings.
func (p *Pool) Len() int { return p.count }

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
