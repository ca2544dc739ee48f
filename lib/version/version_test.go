// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"bytes"
	"runtime"
	"strings"
	"testing"
)

func TestInfo_MarksDirtyBuilds(t *testing.T) {
	savedCommit, savedDirty := GitCommit, GitDirty
	t.Cleanup(func() { GitCommit, GitDirty = savedCommit, savedDirty })

	GitCommit = "abc1234"
	GitDirty = "true"
	if info := Info(); !strings.Contains(info, "(abc1234-dirty,") {
		t.Errorf("Info() = %q, want dirty marker", info)
	}

	GitDirty = "false"
	if info := Info(); strings.Contains(info, "dirty") {
		t.Errorf("Info() = %q, clean build marked dirty", info)
	}
}

func TestPrint(t *testing.T) {
	var output bytes.Buffer
	Print(&output, "catsock")

	text := output.String()
	if !strings.HasPrefix(text, "catsock "+Version+" ") {
		t.Errorf("Print output = %q, want prefix %q", text, "catsock "+Version)
	}
	if !strings.Contains(text, runtime.GOOS+"/"+runtime.GOARCH) {
		t.Errorf("Print output = %q, missing platform", text)
	}
	if !strings.HasSuffix(text, "\n") {
		t.Errorf("Print output not newline-terminated: %q", text)
	}
}
