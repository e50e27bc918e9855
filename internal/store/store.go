package store

// Report is a point-in-time view of the token schema as seen by the catalog.
type Report struct {
	TokensTable     bool            `json:"tokensTable"`
	SyncStatusTable bool            `json:"syncStatusTable"`
	MissingColumns  []string        `json:"missingColumns"`
	Indexes         map[string]bool `json:"indexes"`
	LegacyTrigger   bool            `json:"legacyTrigger"`
	LegacyFunction  bool            `json:"legacyFunction"`
}

// State derives the schema state from the report.
// The legacy trigger does not affect the state; see Clean.
func (r Report) State() SchemaState {
	if !r.TokensTable || !r.SyncStatusTable {
		return StateAbsent
	}
	if len(r.MissingColumns) > 0 {
		return StateBase
	}
	for _, ok := range r.Indexes {
		if !ok {
			return StateBase
		}
	}
	return StateFull
}

// Clean reports whether neither the legacy trigger nor its function survive.
func (r Report) Clean() bool {
	return !r.LegacyTrigger && !r.LegacyFunction
}

// Healthy reports whether the schema is complete and free of legacy objects.
func (r Report) Healthy() bool {
	return r.State() == StateFull && r.Clean()
}
