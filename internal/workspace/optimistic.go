package workspace

// optimistic applies a change to state before persisting it and restores
// the prior snapshot when persist fails. The caller holds the workspace
// lock and supplies a deep copy function for T.
func optimistic[T any](state *T, snapshot func(T) T, apply func(T) T, persist func() error) error {
	prev := snapshot(*state)
	*state = apply(snapshot(*state))
	if err := persist(); err != nil {
		*state = prev
		return err
	}
	return nil
}
