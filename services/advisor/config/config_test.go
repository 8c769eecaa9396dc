// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidate_RejectsBadTierOrdering(t *testing.T) {
	s := Default()
	s.TierModerate = 0.9 // above TierStrong
	assert.Error(t, s.Validate())

	s = Default()
	s.TierThin = s.TierModerate // boundaries must be strictly increasing
	assert.Error(t, s.Validate())
}

func TestValidate_RejectsModerateAboveHigh(t *testing.T) {
	s := Default()
	s.DomainModerateConfidence = 0.9
	s.DomainHighConfidence = 0.5
	assert.Error(t, s.Validate())
}

func TestValidate_RejectsOutOfRangeValues(t *testing.T) {
	s := Default()
	s.SimilarityFloor = 1.5
	assert.Error(t, s.Validate())

	s = Default()
	s.TopK = 0
	assert.Error(t, s.Validate())
}

func TestFromEnv_AppliesOverrides(t *testing.T) {
	t.Setenv("ADVISOR_TIER_STRONG", "0.90")
	t.Setenv("ADVISOR_TOP_K", "5")
	t.Setenv("ADVISOR_RETRIEVAL_TIMEOUT", "2s")

	s, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 0.90, s.TierStrong)
	assert.Equal(t, 5, s.TopK)
	assert.Equal(t, 2*time.Second, s.RetrievalTimeout)
}

func TestFromEnv_IgnoresUnparseableOverrides(t *testing.T) {
	t.Setenv("ADVISOR_TIER_STRONG", "not-a-number")

	s, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, Default().TierStrong, s.TierStrong)
}

func TestFromEnv_RejectsInvalidCombination(t *testing.T) {
	// Parses fine but violates the tier ordering invariant.
	t.Setenv("ADVISOR_TIER_STRONG", "0.10")

	_, err := FromEnv()
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thresholds.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"tier_strong": 0.85, "top_k": 4}`), 0644))

	s, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 0.85, s.TierStrong)
	assert.Equal(t, 4, s.TopK)
	// Omitted fields keep defaults.
	assert.Equal(t, Default().SimilarityFloor, s.SimilarityFloor)
}

func TestLoadFile_RejectsInvalidThresholds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thresholds.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"tier_strong": 0.1}`), 0644))

	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestStore_ReplaceValidatesAndSwaps(t *testing.T) {
	st := NewStore(Default())

	bad := Default()
	bad.TierStrong = 0.1
	assert.Error(t, st.Replace(bad))
	assert.Equal(t, Default().TierStrong, st.Current().TierStrong, "failed replace must keep the old snapshot")

	good := Default()
	good.TopK = 3
	require.NoError(t, st.Replace(good))
	assert.Equal(t, 3, st.Current().TopK)
}

func TestStore_WatchReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thresholds.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"top_k": 8}`), 0644))

	st := NewStore(Default())
	stop, err := st.Watch(path)
	require.NoError(t, err)
	defer stop()

	require.NoError(t, os.WriteFile(path, []byte(`{"top_k": 3}`), 0644))

	assert.Eventually(t, func() bool {
		return st.Current().TopK == 3
	}, 2*time.Second, 10*time.Millisecond, "watcher should pick up the rewritten file")
}

func TestStore_WatchKeepsSnapshotOnBadReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thresholds.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"top_k": 8}`), 0644))

	st := NewStore(Default())
	stop, err := st.Watch(path)
	require.NoError(t, err)
	defer stop()

	require.NoError(t, os.WriteFile(path, []byte(`{"tier_strong": 0.01}`), 0644))

	// Give the watcher a moment, then confirm the snapshot is unchanged.
	assert.Never(t, func() bool {
		return st.Current().TierStrong == 0.01
	}, 500*time.Millisecond, 50*time.Millisecond)
}
