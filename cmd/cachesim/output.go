package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"github.com/IvanBrykalov/cachesim/policy"
	"github.com/IvanBrykalov/cachesim/sim"
)

func ratio(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }

// renderResults prints one row per job, grouped by policy and ordered by
// capacity.
func renderResults(w io.Writer, results []sim.Stats) {
	groups := sim.ByPolicy(results)
	labels := lo.Keys(groups)
	sort.Strings(labels)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Policy", "Capacity", "Requests", "Miss ratio", "Byte miss ratio", "Objects", "Occupied"})
	for _, label := range labels {
		for _, st := range groups[label] {
			table.Append([]string{
				label,
				humanize.IBytes(uint64(st.Capacity)),
				humanize.Comma(st.Requests),
				ratio(st.MissRatio()),
				ratio(st.ByteMissRatio()),
				humanize.Comma(st.Objects),
				humanize.IBytes(uint64(st.Occupied)),
			})
		}
	}
	table.Render()
}

// renderBest prints the lowest miss ratio per capacity when more than one
// policy ran.
func renderBest(w io.Writer, results []sim.Stats) {
	if len(lo.UniqBy(results, func(s sim.Stats) string { return s.Label() })) < 2 {
		return
	}
	best := sim.Best(results)
	capacities := lo.Keys(best)
	sort.Slice(capacities, func(i, j int) bool { return capacities[i] < capacities[j] })

	fmt.Fprintln(w)
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Capacity", "Best policy", "Miss ratio"})
	for _, c := range capacities {
		st := best[c]
		table.Append([]string{humanize.IBytes(uint64(c)), st.Label(), ratio(st.MissRatio())})
	}
	table.Render()
}

// policyParams documents the parameters each policy accepts.
var policyParams = map[string]string{
	"arc":    "ghost-list-factor (default 2)",
	"belady": "none; needs next access times (oracle trace or in-memory annotation)",
	"fifo":   "none",
	"lfu":    "none",
	"lru":    "none",
	"random": "seed (default --seed)",
	"sfifo":  "n-seg (default 4)",
	"slru":   "n-seg (default 4)",
	"twoq":   "ain-size-ratio (default 0.25), aout-size-ratio (default 0.5)",
}

func listPolicies(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Policy", "Parameters"})
	for _, name := range policy.Names() {
		table.Append([]string{name, lo.ValueOr(policyParams, name, "")})
	}
	table.Render()
}
