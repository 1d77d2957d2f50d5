// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package kfold splits a dataset into shuffled k-fold cross-validation
// partitions. The layout matches the common convention: after a seeded
// shuffle the indices are cut into k contiguous chunks, and the first
// n%k chunks hold one extra element.
package kfold

import (
	"fmt"
	"iter"
	"math/rand/v2"
	"slices"

	"github.com/pdiddy/spectra-scraper/pkg/types"
)

const (
	DefaultFolds        = 5
	DefaultSeed  uint64 = 4
)

// Split returns k folds over indices 0..n-1. Fold i validates on chunk i
// and trains on the rest. Index lists are sorted ascending. The same n, k
// and seed always give the same folds.
func Split(n, k int, seed uint64) ([]types.Fold, error) {
	if k < 2 {
		return nil, fmt.Errorf("k-fold split needs at least 2 folds, got %d", k)
	}
	if k > n {
		return nil, fmt.Errorf("cannot split %d samples into %d folds", n, k)
	}

	perm := rand.New(rand.NewPCG(seed, seed)).Perm(n)

	folds := make([]types.Fold, k)
	start := 0
	for i := range k {
		size := n / k
		if i < n%k {
			size++
		}
		stop := start + size

		validation := slices.Clone(perm[start:stop])
		train := make([]int, 0, n-size)
		train = append(train, perm[:start]...)
		train = append(train, perm[stop:]...)
		slices.Sort(validation)
		slices.Sort(train)

		folds[i] = types.Fold{Index: i, Train: train, Validation: validation}
		start = stop
	}
	return folds, nil
}

// Partitions yields the (train, validation) element slices for each fold.
func Partitions[T any](items []T, folds []types.Fold) iter.Seq2[[]T, []T] {
	return func(yield func([]T, []T) bool) {
		for _, f := range folds {
			if !yield(pick(items, f.Train), pick(items, f.Validation)) {
				return
			}
		}
	}
}

func pick[T any](items []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = items[j]
	}
	return out
}
