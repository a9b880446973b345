package chat

// QuickAction is a canned query offered as a one-click button.
type QuickAction struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Query string `json:"query"`
}

// ExampleGroup is a titled list of sample questions.
type ExampleGroup struct {
	Title   string   `json:"title"`
	Queries []string `json:"queries"`
}

var quickActions = []QuickAction{
	{
		ID:    "health",
		Label: "Database Health Check",
		Query: "Perform a comprehensive database health check and report any issues or recommendations.",
	},
	{
		ID:    "performance",
		Label: "Performance Analysis",
		Query: "What are the top 5 slowest queries in the database and how can they be optimized?",
	},
	{
		ID:    "indexes",
		Label: "Index Recommendations",
		Query: "Analyze the current workload and recommend indexes to improve performance.",
	},
}

var exampleGroups = []ExampleGroup{
	{
		Title: "Database Health & Performance",
		Queries: []string{
			"Perform a comprehensive database health check",
			"What are the current buffer cache hit rates?",
			"Show me database connection statistics",
		},
	},
	{
		Title: "Query Optimization",
		Queries: []string{
			"What are the top 5 slowest queries and how can I optimize them?",
			"Analyze the execution plan for my complex JOIN query",
			"Show me queries that are doing full table scans",
		},
	},
	{
		Title: "Index Analysis",
		Queries: []string{
			"What indexes should I add to improve performance?",
			"Analyze my current indexes and suggest improvements",
			"Show me unused indexes that can be dropped",
		},
	},
	{
		Title: "Schema Analysis",
		Queries: []string{
			"List all tables and their relationships",
			"Show me the largest tables in my database",
			"Analyze my database schema structure",
		},
	},
}

// QuickActions returns the quick actions in display order.
func QuickActions() []QuickAction {
	return append([]QuickAction(nil), quickActions...)
}

// QuickActionByID looks up a quick action.
func QuickActionByID(id string) (QuickAction, bool) {
	for _, qa := range quickActions {
		if qa.ID == id {
			return qa, true
		}
	}
	return QuickAction{}, false
}

// Examples returns the grouped example queries.
func Examples() []ExampleGroup {
	out := make([]ExampleGroup, len(exampleGroups))
	for i, g := range exampleGroups {
		out[i] = ExampleGroup{Title: g.Title, Queries: append([]string(nil), g.Queries...)}
	}
	return out
}
