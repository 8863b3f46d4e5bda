package mdp

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var referenceModel = Model{
	Transitions: DefaultTransitions,
	Rewards:     Vector{5.0, 2.5, 2.5},
}

func TestBackup(t *testing.T) {
	testCases := []struct {
		name     string
		model    Model
		values   Vector
		discount float64
		expect   Vector
	}{
		{
			name:     "scheduler rewards from zero",
			model:    DefaultModel(),
			discount: 0.9,
			expect:   Vector{0.5, 0.4, 0.4},
		},
		{
			name:     "reference rewards from zero",
			model:    referenceModel,
			discount: 0.9,
			expect:   Vector{1.25, 1.0, 1.0},
		},
		{
			name:     "reference rewards second pass",
			model:    referenceModel,
			values:   Vector{1.25, 1.0, 1.0},
			discount: 0.9,
			expect:   Vector{0.5 * (2.5 + 0.9), 0.4 * (2.5 + 0.9), 0.4 * (2.5 + 0.9)},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			actual := Backup(&tc.model, tc.values, tc.discount)
			assert.InDeltaSlice(t, tc.expect[:], actual[:], 1e-12)
		})
	}
}

func TestConverge_ReferenceFixture(t *testing.T) {
	result, err := Converge(referenceModel, 0.9, 1e-6, 0, MeanDiff)
	require.NoError(t, err)

	fixed := Backup(&referenceModel, result.Values, 0.9)
	for i := range fixed {
		assert.InDelta(t, fixed[i], result.Values[i], 1e-6, "state %d", i)
	}
	assert.InDeltaSlice(t, []float64{1.953125, 1.5625, 1.5625}, result.Values[:], 1e-5)
}

func TestConverge_RandomModels(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for n := 0; n < 200; n++ {
		var m Model
		for i := range m.Transitions {
			a, b := rng.Float64(), rng.Float64()
			if a > b {
				a, b = b, a
			}
			m.Transitions[i] = [NumStates]float64{a, b - a, 1 - b}
			m.Rewards[i] = rng.Float64()*20 - 10
		}
		discount := rng.Float64() * 0.95
		result, err := Converge(m, discount, 1e-6, 10000, nil)
		require.NoError(t, err, "model %+v discount %v", m, discount)
		assert.Less(t, result.Diff, 1e-6)
	}
}

func TestConverge_Invalid(t *testing.T) {
	bad := referenceModel
	bad.Transitions[1] = [NumStates]float64{0.5, 0.5, 0.5}
	_, err := Converge(bad, 0.9, 1e-6, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidModel)

	_, err = Converge(referenceModel, 1.0, 1e-6, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidDiscount)

	_, err = Converge(referenceModel, 0.9, 0, 5, nil)
	assert.ErrorIs(t, err, ErrNotConverged)
}

func TestSystem_Init(t *testing.T) {
	system := New(DefaultModel())
	assert.Equal(t, Vector{}, system.Values())
	assert.Equal(t, Idle, system.State())

	system.Init(0.9)
	initial := system.Values()
	assert.InDeltaSlice(t, []float64{0.5, 0.4, 0.4}, initial[:], 1e-12)
}

func TestSystem_Step(t *testing.T) {
	system := New(DefaultModel()).Init(0.9)

	computed := system.ComputeValues(0.9)
	current := system.Values()
	assert.InDeltaSlice(t, []float64{0.5, 0.4, 0.4}, current[:], 1e-12, "ComputeValues must not commit")

	values, diff := system.Step(0.9)
	assert.Equal(t, computed, values)
	assert.Equal(t, values, system.Values())
	assert.InDelta(t, (0.18+0.144+0.144)/3, diff, 1e-12)

	for i := 0; i < 100 && diff > 1e-9; i++ {
		_, diff = system.Step(0.9)
	}
	converged := system.Values()
	assert.InDeltaSlice(t, []float64{0.78125, 0.625, 0.625}, converged[:], 1e-8)
}

func TestSystem_Decide(t *testing.T) {
	system := New(DefaultModel()).Init(0.9)

	testCases := []struct {
		name   string
		state  State
		expect State
	}{
		{name: "idle prefers queue", state: Idle, expect: DoQueue},
		{name: "queue prefers immediate", state: DoQueue, expect: DoImmediate},
		{name: "immediate prefers queue", state: DoImmediate, expect: DoQueue},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			system.SetState(tc.state)
			action := system.Decide(ExtState{Normal: 3, Immediate: 1})
			assert.Equal(t, tc.expect, action.State())
		})
	}
}

func TestSystem_DecideTieBreak(t *testing.T) {
	m := Model{
		Transitions: Matrix{{0, 0.5, 0.5}, {0.5, 0, 0.5}, {0.5, 0.5, 0}},
		Rewards:     Vector{1, 1, 1},
	}
	system := New(m).Init(0.5)
	system.SetState(Idle)
	assert.Equal(t, DoQueue, system.Decide(ExtState{}).State())
	system.SetState(DoQueue)
	assert.Equal(t, Idle, system.Decide(ExtState{}).State())
}

func TestSystem_DecideNeverCurrent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for n := 0; n < 500; n++ {
		var m Model
		for i := range m.Transitions {
			a, b := rng.Float64(), rng.Float64()
			if a > b {
				a, b = b, a
			}
			m.Transitions[i] = [NumStates]float64{a, b - a, 1 - b}
			m.Rewards[i] = rng.Float64()*2 - 1
		}
		system := New(m).Init(rng.Float64() * 0.99)
		for steps := rng.Intn(5); steps > 0; steps-- {
			system.Step(0.9)
		}
		for s := State(0); int(s) < NumStates; s++ {
			system.SetState(s)
			assert.NotEqual(t, s, system.Decide(ExtState{}).State())
		}
	}
}

func TestSystem_Weigher(t *testing.T) {
	var observed ExtState
	system := New(DefaultModel(), WithWeigher(func(ext ExtState, candidate State, score float64) float64 {
		observed = ext
		if candidate == DoImmediate && ext.Immediate > 0 {
			return math.Inf(1)
		}
		return score
	})).Init(0.9)

	assert.Equal(t, DoQueue, system.Decide(ExtState{Normal: 1}).State())
	assert.Equal(t, DoImmediate, system.Decide(ExtState{Normal: 1, Immediate: 2}).State())
	assert.Equal(t, ExtState{Normal: 1, Immediate: 2}, observed)
}

func TestSystem_SetStateInvalid(t *testing.T) {
	system := New(DefaultModel())
	assert.Panics(t, func() { system.SetState(State(5)) })
}

func TestModel_Validate(t *testing.T) {
	assert.NoError(t, DefaultModel().Validate())
	bad := DefaultModel()
	bad.Rewards[2] = math.NaN()
	assert.ErrorIs(t, bad.Validate(), ErrInvalidModel)
	bad = DefaultModel()
	bad.Transitions[0][0] = -0.1
	assert.ErrorIs(t, bad.Validate(), ErrInvalidModel)
}
