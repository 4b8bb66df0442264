// Package compose resolves a layered compose specification into a concrete
// project: it substitutes variables, normalizes and merges the source
// documents, resolves extends references, builds the service dependency
// graph, and produces the ordered container records the orchestrator runs.
package compose
