package postgres

// RepositoryOption configures a reading repository.
type RepositoryOption func(*repoConfig)

type repoConfig struct {
	table        string
	tagTable     string
	machineTable string
}

// WithTable overrides the default table name.
func WithTable(table string) RepositoryOption {
	return func(cfg *repoConfig) {
		if table != "" {
			cfg.table = table
		}
	}
}

// WithJoinTables overrides the tag and machine tables used to resolve machine and line.
func WithJoinTables(tags, machines string) RepositoryOption {
	return func(cfg *repoConfig) {
		if tags != "" {
			cfg.tagTable = tags
		}
		if machines != "" {
			cfg.machineTable = machines
		}
	}
}

func applyOptions(table string, opts []RepositoryOption) repoConfig {
	cfg := repoConfig{table: table, tagTable: "sensor_tags", machineTable: "machines"}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
