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

// Package apis contains the durable entities and queue envelopes of the
// competition control plane. Entities are addressed by a partition key and a
// row key and are stored with unconditional last-writer-wins upserts; there
// are no multi-row transactions anywhere in the system.
package apis

import (
	"time"
)

// Entity is anything that can be written to a storage table.
type Entity interface {
	PartitionKey() string
	RowKey() string
}

// Timestamp renders t in the wire format used for every persisted time field.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTimestamp is the inverse of Timestamp. It also accepts timestamps
// without sub-second precision since older rows were written that way.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Parse(time.RFC3339, s)
	}
	return t, nil
}
