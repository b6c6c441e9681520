// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"testing"
	"time"
)

// =============================================================================
// SPINNER TESTS
// =============================================================================

func TestSpinnerConfigs(t *testing.T) {
	spinners := []struct {
		name    string
		spinner SpinnerConfig
	}{
		{"LineSpinner", LineSpinner},
		{"DotsSpinner", DotsSpinner},
		{"PulseSpinner", PulseSpinner},
	}

	for _, s := range spinners {
		if len(s.spinner.Frames) == 0 {
			t.Errorf("%s should have frames", s.name)
		}
		if s.spinner.FPS <= 0 {
			t.Errorf("%s should have a positive FPS", s.name)
		}
		if s.spinner.Duration() <= 0 || s.spinner.Duration() > time.Second {
			t.Errorf("%s frame duration out of range: %v", s.name, s.spinner.Duration())
		}
	}
}
