package coord

import (
	"context"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"hive/pkg/protocol"
)

// Plan is a YAML-described epic with its subtask cells, used to seed
// a project's task forest in one import.
//
//	epic:
//	  title: Ship the importer
//	  description: ...
//	cells:
//	  - title: Parse the plan file
//	  - title: Wire the CLI command
//	    description: ...
type Plan struct {
	Epic struct {
		Title       string `yaml:"title"`
		Description string `yaml:"description"`
	} `yaml:"epic"`
	Cells []struct {
		Title       string `yaml:"title"`
		Description string `yaml:"description"`
	} `yaml:"cells"`
}

// ImportPlan parses a YAML plan and folds it into cell.created events:
// one epic, then one child cell per entry. Returns the epic id and the
// created child ids.
func (c *Coordinator) ImportPlan(ctx context.Context, data []byte) (string, []string, error) {
	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return "", nil, &protocol.ValidationError{Field: "plan", Reason: err.Error()}
	}
	if plan.Epic.Title == "" {
		return "", nil, &protocol.ValidationError{Field: "plan", Reason: "epic.title missing"}
	}
	for i, cell := range plan.Cells {
		if cell.Title == "" {
			return "", nil, &protocol.ValidationError{
				Field:  "plan",
				Reason: fmt.Sprintf("cells[%d].title missing", i),
			}
		}
	}

	epic, err := c.CreateCell(ctx, plan.Epic.Title, plan.Epic.Description, "")
	if err != nil {
		return "", nil, err
	}

	ids := make([]string, 0, len(plan.Cells))
	for _, cell := range plan.Cells {
		created, err := c.CreateCell(ctx, cell.Title, cell.Description, epic.ID)
		if err != nil {
			return epic.ID, ids, err
		}
		ids = append(ids, created.ID)
	}
	return epic.ID, ids, nil
}

// marshalPayload is the shared JSON encoder for deferred payloads.
func marshalPayload(v any) ([]byte, error) {
	return json.Marshal(v)
}
