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

package interval

import "errors"

// ErrNotFound is returned by ExtractInterval when no row contains the
// requested bounds.
var ErrNotFound = errors.New("interval: no row contains the requested bounds")

// ErrNotUnique is returned by ExtractInterval when more than one row
// contains the requested bounds.
var ErrNotUnique = errors.New("interval: more than one row contains the requested bounds")
