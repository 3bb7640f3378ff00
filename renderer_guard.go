package voxmirror

import (
	"fmt"
	"slices"
)

// RendererName identifies a concrete renderer module.
type RendererName string

const (
	RendererOctree RendererName = "octree"
	RendererWorld  RendererName = "world"
)

// RendererTag records which renderer modules have been installed into the App.
// Each renderer owns device resources and may only be installed once.
type RendererTag struct {
	Names []RendererName
}

// ensureSingleRenderer enforces that a renderer is installed at most once.
// A second install of the same renderer panics with a clear message.
func ensureSingleRenderer(app *App, name RendererName) {
	if app == nil {
		panic("ensureSingleRenderer: app is nil")
	}
	tag, ok := Resource[RendererTag](app)
	if !ok {
		tag = &RendererTag{}
		app.addResources(tag)
	}
	if slices.Contains(tag.Names, name) {
		app.Logger().Errorf("Renderer installed twice: %s", name)
		panic(fmt.Sprintf("Renderer installed twice: %s", name))
	}
	tag.Names = append(tag.Names, name)
}
