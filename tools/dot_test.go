/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package tools

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDot(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Dot(fixture(t), &buf, "", "talk"))

	out := buf.String()
	assert.True(t, len(out) > 0)
	assert.Contains(t, out, "digraph G {")
	assert.Contains(t, out, `"introduce" -> "talk"`)
	assert.Contains(t, out, `"any" -> "introduce"`)
	assert.Contains(t, out, `"ring" -> "ring"`)
}
