package engine

import (
	"context"
	"math/rand"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/symrec/mirror/internal/abstraction"
	"github.com/symrec/mirror/internal/config"
	"github.com/symrec/mirror/internal/graph"
	"github.com/symrec/mirror/internal/memory"
	"github.com/symrec/mirror/internal/oracle"
	"github.com/symrec/mirror/internal/policy"
	"github.com/symrec/mirror/internal/rewrite"
	"github.com/symrec/mirror/internal/symbol"
)

// capture records everything handed to the presentation collaborator.
type capture struct {
	events    []memory.Event
	summaries []Summary
}

func (c *capture) Event(ev memory.Event) { c.events = append(c.events, ev) }
func (c *capture) Summary(s Summary)     { c.summaries = append(c.summaries, s) }

func testConfig(t *testing.T) config.Config {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.CyclePauseMS = 0
	cfg.StepPauseMS = 0
	cfg.SaveEvery = 2
	return cfg
}

func newTestEngine(t *testing.T, cfg config.Config, seeds []string) (*Engine, *capture, *graph.Graph) {
	t.Helper()

	norm := symbol.NewNormalizer(cfg.MaxSymbolLen)

	log, err := memory.Open(cfg.EventsPath(), cfg.MaxEvents, norm.Extract, nil)
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	g := graph.New(nil)
	rules := rewrite.NewStore(nil)
	rng := rand.New(rand.NewSource(42))

	picker := policy.New(policy.Config{
		ExploreChance:  cfg.ExploreChance,
		AbstractChance: cfg.AbstractChance,
		RepeatWindow:   cfg.RepeatWindow,
		MaxDepth:       cfg.MaxAbsDepth,
	}, seeds, rng)

	abs := abstraction.New(abstraction.Config{
		MinSupport:   cfg.MinPairSupport,
		MaxDepth:     cfg.MaxAbsDepth,
		ScanLimit:    cfg.PairScanLimit,
		WindowSize:   cfg.RateWindow,
		MaxPerWindow: cfg.MaxAbsPerWindow,
	}, norm, g, nil)

	pres := &capture{}
	eng, err := New(cfg, Deps{
		Log:        log,
		Graph:      g,
		Rules:      rules,
		Picker:     picker,
		Oracle:     oracle.New("mirror-1", rng, fixedClock{}),
		Abstractor: abs,
		Norm:       norm,
		RNG:        rng,
		Clock:      NewStepClock(time.Unix(1000, 0), time.Second),
		Tokens:     FixedGenerator("run-test"),
		Presenter:  pres,
	})
	require.NoError(t, err)
	return eng, pres, g
}

type fixedClock struct{}

func (fixedClock) Now() time.Time { return time.Unix(777, 0) }

// TestNew_Validation tests config and dependency checks.
func TestNew_Validation(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxEvents = 0

	_, err := New(cfg, Deps{})
	require.Error(t, err)

	// A zero cadence would divide by zero in Cycle and Run; construction
	// must refuse it instead.
	cfg = testConfig(t)
	cfg.AbstractionEvery = 0
	_, err = New(cfg, Deps{})
	require.Error(t, err)

	cfg = testConfig(t)
	cfg.SaveEvery = 0
	_, err = New(cfg, Deps{})
	require.Error(t, err)

	cfg = testConfig(t)
	_, err = New(cfg, Deps{}) // all deps missing
	require.Error(t, err)
}

// TestStep_AppendsReflection tests one generation step end to end.
func TestStep_AppendsReflection(t *testing.T) {
	cfg := testConfig(t)
	eng, pres, g := newTestEngine(t, cfg, []string{"alpha", "beta"})

	picked, err := eng.Step()
	require.NoError(t, err)
	assert.Contains(t, []string{"alpha", "beta"}, picked)

	require.Len(t, pres.events, 1)
	ev := pres.events[0]
	assert.Equal(t, memory.KindReflection, ev.Kind)
	assert.Contains(t, ev.Text, symbol.Bracket(picked))
	assert.Equal(t, "run-test", ev.Meta["run"])

	// The picked symbol and the context token were linked.
	syms, ok := ev.Meta["symbols"].([]string)
	require.True(t, ok)
	require.Len(t, syms, 2)
	assert.Equal(t, 1, g.Weight(syms[0], syms[1]))
}

// TestCycle_Summary tests that a cycle reports window size and rankings.
func TestCycle_Summary(t *testing.T) {
	cfg := testConfig(t)
	cfg.ThoughtsMin = 4
	cfg.ThoughtsMax = 4
	eng, pres, _ := newTestEngine(t, cfg, []string{"alpha", "beta"})

	sum, err := eng.Cycle(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Cycle)
	assert.Equal(t, 4, sum.Events)
	assert.NotEmpty(t, sum.Top)
	require.Len(t, pres.summaries, 1)
	assert.Equal(t, sum, pres.summaries[0])
}

// TestCycle_EmitsInsight tests abstraction promotion through the cycle
// path with forced probabilities.
func TestCycle_EmitsInsight(t *testing.T) {
	cfg := testConfig(t)
	cfg.InsightChance = 1.0
	cfg.AbstractionEvery = 1
	cfg.ThoughtsMin = 1
	cfg.ThoughtsMax = 1
	eng, pres, g := newTestEngine(t, cfg, []string{"alpha"})

	// Pre-strengthen a pair past the support threshold.
	g.Link("hot", "pair", cfg.MinPairSupport+2)

	_, err := eng.Cycle(context.Background(), 1)
	require.NoError(t, err)

	var insight *memory.Event
	for i := range pres.events {
		if pres.events[i].Kind == memory.KindInsight {
			insight = &pres.events[i]
			break
		}
	}
	require.NotNil(t, insight, "expected an insight event")
	assert.Contains(t, insight.Text, "abs(hot_pair)")
	assert.Positive(t, g.Weight("abs(hot_pair)", "hot"))
}

// TestRun_SavesOnCancel tests the orderly-save transaction boundary.
func TestRun_SavesOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.ThoughtsMin = 1
	cfg.ThoughtsMax = 1
	eng, _, _ := newTestEngine(t, cfg, []string{"alpha", "beta"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not stop after cancellation")
	}

	_, err := os.Stat(cfg.GraphPath())
	assert.NoError(t, err, "graph snapshot saved on exit")
	_, err = os.Stat(cfg.RulesPath())
	assert.NoError(t, err, "rules snapshot saved on exit")
}

// TestTell_RewritesAndLinks tests the user-input path.
func TestTell_RewritesAndLinks(t *testing.T) {
	cfg := testConfig(t)
	eng, pres, g := newTestEngine(t, cfg, nil)
	eng.rules.Set("pets", "cat", "dog")

	out, err := eng.Tell("the CAT chases the [mouse] and the [yarn]")
	require.NoError(t, err)
	assert.Contains(t, out, "dog")

	require.Len(t, pres.events, 1)
	assert.Equal(t, memory.KindUser, pres.events[0].Kind)

	// Bracketed mentions were pairwise linked.
	assert.Equal(t, 1, g.Weight("mouse", "yarn"))
}

// TestRunToken tests that the configured generator stamps the run.
func TestRunToken(t *testing.T) {
	cfg := testConfig(t)
	eng, _, _ := newTestEngine(t, cfg, nil)
	assert.Equal(t, "run-test", eng.RunToken())
}
