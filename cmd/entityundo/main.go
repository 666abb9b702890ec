package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/zeusync/entityundo/internal/config"
	"github.com/zeusync/entityundo/internal/core/assets"
	"github.com/zeusync/entityundo/internal/core/components"
	"github.com/zeusync/entityundo/internal/core/editor"
	"github.com/zeusync/entityundo/internal/core/models"
	"github.com/zeusync/entityundo/internal/injector"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML session config")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadFile(*configPath)
		if err != nil {
			fmt.Println("Error loading config:", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	session, cleanup, err := injector.InitializeSession(cfg, prometheus.NewRegistry())
	if err != nil {
		fmt.Println("Error starting session:", err)
		os.Exit(1)
	}
	defer cleanup()

	if err = run(session); err != nil {
		fmt.Println("Error:", err)
	}
	if err = session.Close(); err != nil {
		fmt.Println("Error closing session:", err)
	}
}

// run drives a short scripted edit: create, move, delete, then walk the
// history back and forth.
func run(s *editor.Session) error {
	meshID := uuid.New()
	if err := s.Assets().Register(meshID, "crate.mesh"); err != nil {
		return err
	}

	crate, err := s.CreateEntity("crate", s.Contexts().EditorContext(), func(e *models.Entity) error {
		if err := e.AddComponent(components.NewTransform(0, 0, 0)); err != nil {
			return err
		}
		return e.AddComponent(&components.MeshRenderer{
			Mesh:    assets.Ref{ID: meshID, Hint: "crate.mesh"},
			Visible: true,
		})
	})
	if err != nil {
		return err
	}
	id := crate.ID()
	report(s, "created", id)

	err = s.ModifyEntity(id, func(e *models.Entity) error {
		c, ok := e.GetComponent(components.TransformType)
		if !ok {
			return models.ErrComponentNotFound
		}
		c.(*components.Transform).Position = components.Vec3{X: 4, Y: 0, Z: -2}
		return nil
	})
	if err != nil {
		return err
	}
	report(s, "moved", id)

	if err = s.DeleteEntity(id); err != nil {
		return err
	}
	report(s, "deleted", id)

	steps := []struct {
		name string
		fn   func() error
	}{
		{"undo delete", s.Undo},
		{"undo move", s.Undo},
		{"redo move", s.Redo},
	}
	for _, step := range steps {
		if err = step.fn(); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
		report(s, step.name, id)
	}
	return nil
}

func report(s *editor.Session, step string, id models.EntityID) {
	e := s.Registry().FindByIdentity(id)
	if e == nil {
		fmt.Printf("%-12s entity %d gone, cached=%d\n", step, id, s.Cache().Len())
		return
	}
	var pos components.Vec3
	if c, ok := e.GetComponent(components.TransformType); ok {
		pos = c.(*components.Transform).Position
	}
	digest, _ := s.Cache().Digest(id)
	fmt.Printf("%-12s entity %d %s at (%g, %g, %g) digest=%016x selected=%v\n",
		step, id, e.State(), pos.X, pos.Y, pos.Z, digest, s.Selection().IsSelected(id))
}
