package command

import (
	"github.com/google/uuid"
	"github.com/zeusync/entityundo/internal/core/models"
)

// CreateCommand undoes an entity creation. Undo deletes the entity; Redo
// rebuilds it from the state captured right after creation and selects it.
type CreateCommand struct {
	*StateCommand
}

func NewCreateCommand(id uuid.UUID, deps Deps) *CreateCommand {
	return &CreateCommand{StateCommand: NewStateCommand(id, LabelCreate, deps)}
}

// Capture snapshots a freshly created entity. A created entity is always
// selected when redone, whatever the selection is at capture time.
func (c *CreateCommand) Capture(entity *models.Entity) error {
	if err := c.StateCommand.Capture(entity, false); err != nil {
		return err
	}
	c.selected = true
	return nil
}

// Undo deletes the created entity and drops its cache entry.
func (c *CreateCommand) Undo() error {
	return c.destroy()
}
