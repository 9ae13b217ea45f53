package main

import (
	"github.com/pressline/writeflow-sdk/pkg/workflow"
)

// Flow represents the guided article workflow.
// Type alias to help with import resolution.
type Flow = workflow.Flow

// Context represents the shared workflow context.
// Type alias to help with import resolution.
type Context = workflow.Context
