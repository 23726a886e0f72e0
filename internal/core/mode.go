// Package core is the orchestration layer.  It turns a Config into a
// runnable Mode that wires the transport, the reconnecting client, and
// the terminal together.
//
// Architecture layers (bottom → top):
//
//	transport  →  tcpclient  →  core  →  cmd (CLI)
package core

import "context"

// Mode is a complete operational mode of relink.  It owns its full
// lifecycle from the first dial to teardown.
type Mode interface {
	Run(ctx context.Context) error
}
