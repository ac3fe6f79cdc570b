// Package termgfx is a GPU text engine for high-volume streamed
// terminal output. It retains a bounded scrollback of styled lines,
// rasterizes glyphs into a shared font atlas, composes the visible
// window into color-batched quads, and submits one draw call per batch.
//
// The Engine is the integration point: the host streams lines in with
// AddLine, drives the loop with Frame, and either attaches a GPU device
// through a DeviceHandle or supplies its own batch.Submitter for
// headless use. Everything underneath is an explicit component with its
// own package: termbuf (scrollback and search), atlas (glyph pages),
// batch (quad batching and the GPU pipeline), scroll (virtual
// scrolling), cache (composed-geometry caching), sched (frame and
// maintenance queues), and render (the line composition pipeline).
//
// termgfx produces no log output by default; call SetLogger to enable
// structured logging across every sub-package.
package termgfx
