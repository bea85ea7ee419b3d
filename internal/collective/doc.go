// Package collective runs a fixed world of P participants that exchange
// work through blocking scatter and gather steps. Rank 0 partitions the
// tasks into P groups, scatters them, and gathers every participant's
// results back. A failing participant aborts the whole world: nothing
// partial is returned.
package collective
