package orchestrator

// Diagram returns a Mermaid state diagram of the per-turn state machine.
// It is a diagnostic export; rendering is left to the caller.
func Diagram() string {
	return `stateDiagram-v2
    [*] --> start
    start --> retrieved: retrieve corpus context
    retrieved --> decided: sufficiency gate
    decided --> answered: direct answer
    decided --> answered: agent search
    answered --> persisted: checkpoint save
    persisted --> [*]
`
}
