package command

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/zeusync/entityundo/internal/core/models"
)

// DeleteCommand undoes an entity deletion. Undo rebuilds the entity from the
// state it had when it was captured; Redo deletes it again.
type DeleteCommand struct {
	*StateCommand
}

func NewDeleteCommand(id uuid.UUID, deps Deps) *DeleteCommand {
	return &DeleteCommand{StateCommand: NewStateCommand(id, LabelDelete, deps)}
}

// Capture snapshots entity right before it is deleted. The cache entry is
// refreshed first so the undo snapshot reflects the entity as it is now.
func (c *DeleteCommand) Capture(entity *models.Entity) error {
	if err := c.deps.validate(); err != nil {
		c.invalid = true
		return err
	}
	if entity == nil {
		return c.fail("capture", ErrNilEntity)
	}
	if err := c.deps.Cache.UpdateCache(entity.ID()); err != nil {
		return c.fail("capture", fmt.Errorf("%w: %w", ErrCacheRefresh, err))
	}
	return c.StateCommand.Capture(entity, true)
}

// Redo deletes the entity again and drops its cache entry.
func (c *DeleteCommand) Redo() error {
	return c.destroy()
}
