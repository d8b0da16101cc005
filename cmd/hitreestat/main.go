// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

// Command hitreestat reads addresses, one per line, from stdin or a file,
// feeds them through a hitree.Tree, and prints the resulting leaf set as
// CIDR + hit count.
package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/gaissmai/hitree"
	"github.com/gaissmai/hitree/internal/metrics"
	"github.com/gaissmai/hitree/internal/recent"
)

var (
	inputPath  string
	topN       int
	metricsBnd string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hitreestat",
	Short: "Aggregate a stream of IP hits into a bounded leaf set",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVarP(&inputPath, "input", "i", "-", "file to read addresses from, - for stdin")
	rootCmd.Flags().IntVar(&topN, "top", 0, "also print the N most recently active leaves")
	rootCmd.Flags().StringVar(&metricsBnd, "metrics-addr", "", "if set, serve Prometheus metrics on this address")
}

func run(cmd *cobra.Command, _ []string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var mcs *metrics.Collectors
	if metricsBnd != "" {
		reg := prometheus.NewRegistry()
		mcs = metrics.New(reg)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			logger.Info("serving metrics", "addr", metricsBnd)
			if err := http.ListenAndServe(metricsBnd, mux); err != nil {
				logger.Error("metrics server stopped", "err", err)
			}
		}()
	}

	var top *recent.TopN[string, *hitree.Node[struct{}]]
	if topN > 0 {
		var err error
		top, err = recent.NewTopN[string, *hitree.Node[struct{}]](topN)
		if err != nil {
			return fmt.Errorf("hitreestat: %w", err)
		}
	}

	hooks := hitree.Hooks[struct{}]{
		Aggregate: func(into *hitree.Node[struct{}], _ []*hitree.Node[struct{}]) {
			if mcs != nil {
				family := "v4"
				if into.Network().Family() == hitree.V6 {
					family = "v6"
				}
				mcs.AggregationsTotal.WithLabelValues(family, strconv.Itoa(int(into.Network().PrefixLen()))).Inc()
			}
		},
	}
	tree := hitree.NewTree[struct{}](hooks)

	in, closeIn, err := openInput(inputPath)
	if err != nil {
		return fmt.Errorf("hitreestat: %w", err)
	}
	defer closeIn()

	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		hit, err := tree.Add(line)
		if err != nil {
			logger.Warn("skipping malformed address", "line", line, "err", err)
			continue
		}
		if mcs != nil {
			mcs.LeavesTotal.Add(float64(len(hit.LeafsAdded)))
		}
		if top != nil {
			top.Touch(hit.Node.Network().String(), hit.Node)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("hitreestat: reading input: %w", err)
	}

	printLeaves(cmd.OutOrStdout(), tree)
	if top != nil {
		printTop(cmd.OutOrStdout(), top)
	}
	return nil
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

func printLeaves(w io.Writer, tree *hitree.Tree[struct{}]) {
	var rows []string
	for n := range tree.Leafs() {
		rows = append(rows, fmt.Sprintf("%-24s hits=%d aggregated=%t", n.Network(), n.HitCount(), n.Aggregated()))
	}
	sort.Strings(rows)
	for _, r := range rows {
		fmt.Fprintln(w, r)
	}
}

func printTop(w io.Writer, top *recent.TopN[string, *hitree.Node[struct{}]]) {
	fmt.Fprintln(w, "--- most recently active ---")
	for _, n := range top.Snapshot() {
		fmt.Fprintf(w, "%-24s hits=%d\n", n.Network(), n.HitCount())
	}
}
