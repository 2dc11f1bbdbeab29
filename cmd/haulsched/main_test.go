/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import "testing"

func TestRootCmdHasSolveSubcommand(t *testing.T) {
	root := newRootCmd()
	cmd, _, err := root.Find([]string{"solve"})
	if err != nil {
		t.Fatalf("find solve command: %v", err)
	}
	if cmd.Use != "solve" {
		t.Fatalf("expected solve command, got %q", cmd.Use)
	}
}

func TestSolveCmdRegistersIngestBaseURLFlag(t *testing.T) {
	cmd := newSolveCmd()
	if cmd.Flags().Lookup("ingest-base-url") == nil {
		t.Fatal("expected --ingest-base-url flag to be registered")
	}
	if cmd.Flags().Lookup("planning-start") == nil {
		t.Fatal("expected --planning-start flag to be registered")
	}
}
