package constraint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetConstructionSortsAndDeduplicates(t *testing.T) {
	v, err := Set[uint32](48000, 8000, 16000, 8000)
	require.NoError(t, err)

	members, ok := v.Members()
	require.True(t, ok)
	assert.Equal(t, []uint32{8000, 16000, 48000}, members)
}

func TestEmptySetIsConstructionError(t *testing.T) {
	_, err := Set[uint32]()
	require.Error(t, err)

	var verr *ValueError
	assert.ErrorAs(t, err, &verr)
}

func TestInvertedRangeIsConstructionError(t *testing.T) {
	_, err := Range[uint32](48000, 8000)
	require.Error(t, err)
}

func TestZeroValueIsAny(t *testing.T) {
	var v Value[uint32]
	assert.True(t, v.IsAny())
	assert.True(t, v.Contains(12345))
}

func TestOverlapsTable(t *testing.T) {
	tests := []struct {
		name string
		a, b Value[uint32]
		want Value[uint32]
		ok   bool
	}{
		{
			name: "exact equal",
			a:    Exact[uint32](16000),
			b:    Exact[uint32](16000),
			want: Exact[uint32](16000),
			ok:   true,
		},
		{
			name: "exact disjoint",
			a:    Exact[uint32](16000),
			b:    Exact[uint32](44100),
		},
		{
			name: "exact within range",
			a:    Exact[uint32](16000),
			b:    MustRange[uint32](8000, 48000),
			want: Exact[uint32](16000),
			ok:   true,
		},
		{
			name: "exact outside range",
			a:    Exact[uint32](96000),
			b:    MustRange[uint32](8000, 48000),
		},
		{
			name: "exact in set",
			a:    Exact[uint32](2),
			b:    MustSet[uint32](1, 2, 6),
			want: Exact[uint32](2),
			ok:   true,
		},
		{
			name: "exact not in set",
			a:    Exact[uint32](4),
			b:    MustSet[uint32](1, 2, 6),
		},
		{
			name: "range overlap narrows",
			a:    MustRange[uint32](8000, 16000),
			b:    MustRange[uint32](16000, 48000),
			want: MustRange[uint32](16000, 16000),
			ok:   true,
		},
		{
			name: "range disjoint",
			a:    MustRange[uint32](8000, 12000),
			b:    MustRange[uint32](20000, 48000),
		},
		{
			name: "range filters set",
			a:    MustRange[uint32](8000, 20000),
			b:    MustSet[uint32](8000, 16000, 48000),
			want: MustSet[uint32](8000, 16000),
			ok:   true,
		},
		{
			name: "range filters set to empty",
			a:    MustRange[uint32](100, 200),
			b:    MustSet[uint32](8000, 16000),
		},
		{
			name: "set intersection",
			a:    MustSet[uint32](1, 2, 6, 8),
			b:    MustSet[uint32](2, 6, 12),
			want: MustSet[uint32](2, 6),
			ok:   true,
		},
		{
			name: "set intersection empty",
			a:    MustSet[uint32](1, 2),
			b:    MustSet[uint32](6, 8),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Overlaps(tt.a, tt.b)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.True(t, got.Equal(tt.want), "got %s want %s", got, tt.want)
			}

			// Commutativity must hold for every pair.
			rev, revOK := Overlaps(tt.b, tt.a)
			require.Equal(t, ok, revOK)
			if ok {
				assert.True(t, got.Equal(rev), "overlaps(a,b)=%s but overlaps(b,a)=%s", got, rev)
			}
		})
	}
}

func TestOverlapsAnyIsIdentity(t *testing.T) {
	values := []Value[uint32]{
		Any[uint32](),
		Exact[uint32](16000),
		MustRange[uint32](8000, 48000),
		MustSet[uint32](8000, 16000),
	}
	for _, v := range values {
		got, ok := Overlaps(Any[uint32](), v)
		require.True(t, ok)
		assert.True(t, got.Equal(v))

		got, ok = Overlaps(v, Any[uint32]())
		require.True(t, ok)
		assert.True(t, got.Equal(v))
	}
}

// The result of a defined overlap admits only values admitted by both
// operands.
func TestOverlapsNarrows(t *testing.T) {
	pairs := []struct{ a, b Value[uint32] }{
		{MustRange[uint32](8000, 16000), MustRange[uint32](12000, 48000)},
		{MustRange[uint32](8000, 20000), MustSet[uint32](8000, 16000, 48000)},
		{MustSet[uint32](1, 2, 6), MustSet[uint32](2, 6, 8)},
		{Exact[uint32](16000), MustRange[uint32](8000, 48000)},
	}
	probe := []uint32{0, 1, 2, 6, 8, 8000, 12000, 16000, 20000, 44100, 48000}

	for _, p := range pairs {
		got, ok := Overlaps(p.a, p.b)
		require.True(t, ok)
		for _, x := range probe {
			if got.Contains(x) {
				assert.True(t, p.a.Contains(x), "value %d in result but not in %s", x, p.a)
				assert.True(t, p.b.Contains(x), "value %d in result but not in %s", x, p.b)
			}
		}
	}
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "any", Any[uint32]().String())
	assert.Equal(t, "=16000", Exact[uint32](16000).String())
	assert.Equal(t, "[8000..48000]", MustRange[uint32](8000, 48000).String())
	assert.Equal(t, "{1,2,6}", MustSet[uint32](6, 1, 2).String())
}

func TestStringTypedValues(t *testing.T) {
	v := MustSet(SampleF32, SampleS16)
	assert.True(t, v.Contains(SampleS16))
	assert.False(t, v.Contains(SampleF64))
}
