package runtime

import (
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loom/internal/scenario"
)

// Golden trace snapshots pin the exact canonical serialization of
// representative scenarios. A diff here means either the scheduler's
// interleaving or the canonical encoding changed - both are
// determinism-breaking and must be deliberate.
//
// To regenerate golden files, run:
//
//	go test ./internal/runtime -update
func TestGoldenTraces(t *testing.T) {
	g := goldie.New(t)

	for _, name := range []string{"single-thread-fifo", "producer-consumer-handoff"} {
		t.Run(name, func(t *testing.T) {
			s, err := scenario.Load(filepath.Join("testdata", name+".yaml"))
			require.NoError(t, err)

			tr, err := Run(s)
			require.NoError(t, err)

			canonical, err := tr.Canonical()
			require.NoError(t, err)

			g.Assert(t, name, canonical)
		})
	}
}
