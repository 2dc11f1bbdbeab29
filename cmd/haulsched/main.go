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

// Command haulsched ingests terminals, trucks and transport requests,
// precomputes feasibility, bootstraps and then anneals a schedule, and
// prints the result as JSON. Grounded on cmd/controller/main.go's single
// top-level run shape, restructured around a spf13/cobra command tree the
// way x-b-e-xbe-cli's cmd package is.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "haulsched",
		Short: "Container-haulage scheduling driver",
	}
	cmd.AddCommand(newSolveCmd())
	return cmd
}
