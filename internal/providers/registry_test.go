package providers

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testProvider struct {
	id      string
	enabled bool
}

func (p *testProvider) Search(_ context.Context, _ SearchParams) (*SearchResult, error) {
	return &SearchResult{Provider: p.id}, nil
}

func (p *testProvider) ID() string      { return p.id }
func (p *testProvider) Name() string    { return p.id }
func (p *testProvider) IsEnabled() bool { return p.enabled }

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	p := &testProvider{id: "alpha", enabled: true}

	r.Register(p)
	assert.Same(t, Provider(p), r.Get("alpha"))
	assert.Nil(t, r.Get("missing"))
}

func TestRegistry_RegisterReplacesSameID(t *testing.T) {
	r := NewRegistry()
	first := &testProvider{id: "alpha"}
	second := &testProvider{id: "alpha", enabled: true}

	r.Register(first)
	r.Register(second)

	assert.Same(t, Provider(second), r.Get("alpha"))
	assert.Len(t, r.IDs(), 1)
}

func TestRegistry_IDsSorted(t *testing.T) {
	r := NewRegistry()
	r.Register(&testProvider{id: "zeta"})
	r.Register(&testProvider{id: "alpha"})
	r.Register(&testProvider{id: "mid"})

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, r.IDs())
}

func TestRegistry_Enabled(t *testing.T) {
	r := NewRegistry()
	r.Register(&testProvider{id: "on", enabled: true})
	r.Register(&testProvider{id: "off"})

	enabled := r.Enabled()
	require.Len(t, enabled, 1)
	assert.Equal(t, "on", enabled[0].ID())
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(id string) {
			defer wg.Done()
			r.Register(&testProvider{id: id, enabled: true})
		}(string(rune('a' + i)))
		go func() {
			defer wg.Done()
			_ = r.IDs()
			_ = r.Enabled()
		}()
	}
	wg.Wait()

	assert.Len(t, r.IDs(), 20)
}

func TestSearchParams_Offset(t *testing.T) {
	tests := []struct {
		name   string
		params SearchParams
		want   int
	}{
		{"first page", SearchParams{Page: 1, PageSize: 25}, 0},
		{"third page", SearchParams{Page: 3, PageSize: 10}, 20},
		{"zero page treated as first", SearchParams{Page: 0, PageSize: 10}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.params.Offset())
		})
	}
}
