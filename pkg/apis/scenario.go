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

package apis

// Scenario is a single challenge configuration identified by level{N}{sub}.
// The id is a stable primary key; catalog setup updates scenarios in place and
// never deletes them.
type Scenario struct {
	ScenarioID  string `json:"scenario_id"`
	Name        string `json:"name"`
	Description string `json:"description"`

	// Objectives is the ordered list of boolean objective names a worker
	// reports against. A job solves the scenario iff it reports a non-empty
	// objectives map with every value true.
	Objectives []string          `json:"objectives"`
	Metadata   map[string]string `json:"metadata"`

	// Workqueue names the dispatch queue whose worker pool runs this
	// scenario's model and defense.
	Workqueue string `json:"workqueue"`
	Phase     int    `json:"phase"`

	// Solves counts distinct teams credited with this scenario. It trails
	// team state briefly if the results consumer crashes between its two
	// writes; the count self-heals on the next solve.
	Solves int `json:"solves"`
}

func (s *Scenario) PartitionKey() string { return s.ScenarioID }
func (s *Scenario) RowKey() string       { return s.ScenarioID }

// ScenarioView is the API projection of a scenario. The workqueue is routing
// detail and stays internal.
type ScenarioView struct {
	ScenarioID  string            `json:"scenario_id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Objectives  []string          `json:"objectives,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Solves      int               `json:"solves"`
	Phase       int               `json:"phase"`
}

func (s *Scenario) View() ScenarioView {
	return ScenarioView{
		ScenarioID:  s.ScenarioID,
		Name:        s.Name,
		Description: s.Description,
		Objectives:  s.Objectives,
		Metadata:    s.Metadata,
		Solves:      s.Solves,
		Phase:       s.Phase,
	}
}
