package assets

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownAsset is returned for a key that is not configured.
// 설정 오류는 기본값으로 대체하지 않고 즉시 호출자에게 전달
var ErrUnknownAsset = errors.New("unknown asset")

// Asset maps a short key to the external instrument id
type Asset struct {
	Key    string `yaml:"key" json:"key"`       // BTC
	Symbol string `yaml:"symbol" json:"symbol"` // BTC-USD (Yahoo)
	Name   string `yaml:"name" json:"name"`
}

// Registry is the immutable asset key -> instrument mapping
// ⭐ SSOT: 자산 키 매핑은 여기서만
type Registry struct {
	order []string
	byKey map[string]Asset
}

// Defaults returns the built-in crypto registry (BTC, ETH, SOL)
func Defaults() *Registry {
	r, _ := NewRegistry([]Asset{
		{Key: "BTC", Symbol: "BTC-USD", Name: "Bitcoin"},
		{Key: "ETH", Symbol: "ETH-USD", Name: "Ethereum"},
		{Key: "SOL", Symbol: "SOL-USD", Name: "Solana"},
	})
	return r
}

// NewRegistry builds a registry preserving declaration order
func NewRegistry(list []Asset) (*Registry, error) {
	r := &Registry{
		order: make([]string, 0, len(list)),
		byKey: make(map[string]Asset, len(list)),
	}
	for i, a := range list {
		if a.Key == "" {
			return nil, ValidationError{fmt.Sprintf("assets[%d].key", i), "required"}
		}
		if a.Symbol == "" {
			return nil, ValidationError{fmt.Sprintf("assets[%d].symbol", i), "required"}
		}
		if _, dup := r.byKey[a.Key]; dup {
			return nil, ValidationError{fmt.Sprintf("assets[%d].key", i), fmt.Sprintf("duplicate key %q", a.Key)}
		}
		if a.Name == "" {
			a.Name = a.Key
		}
		r.order = append(r.order, a.Key)
		r.byKey[a.Key] = a
	}
	if len(r.order) == 0 {
		return nil, ValidationError{"assets", "at least one asset required"}
	}
	return r, nil
}

// Lookup resolves a key; unknown keys wrap ErrUnknownAsset
func (r *Registry) Lookup(key string) (Asset, error) {
	a, ok := r.byKey[key]
	if !ok {
		return Asset{}, fmt.Errorf("%w: %q", ErrUnknownAsset, key)
	}
	return a, nil
}

// Has reports whether key is configured
func (r *Registry) Has(key string) bool {
	_, ok := r.byKey[key]
	return ok
}

// Keys returns keys in declaration order
func (r *Registry) Keys() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// All returns assets in declaration order
func (r *Registry) All() []Asset {
	out := make([]Asset, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.byKey[k])
	}
	return out
}

// Validate checks that every key is configured (duplicates rejected).
// Returned keys keep caller order.
func (r *Registry) Validate(keys []string) ([]string, error) {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if !r.Has(k) {
			return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownAsset, k, r.sortedKeys())
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out, nil
}

func (r *Registry) sortedKeys() []string {
	keys := r.Keys()
	sort.Strings(keys)
	return keys
}
