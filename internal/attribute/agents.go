// Package attribute assigns agent identities to the text of a finished
// exchange.
//
// The platform's master coordinator may hand responsibility to a specialist
// mid-exchange with no protocol marker: both write into the same response
// text. The splitter detects the hand-off from the text itself, first via a
// small fixed set of hand-off phrases and then via domain-keyword scoring,
// and cuts the text into ordered per-agent segments.
package attribute

// Agent identities on the MAGPIE platform.
const (
	// Coordinator is the master coordinator, the entry point for every
	// exchange and the default attribution when nothing else matches.
	Coordinator = "master_coordinator"

	// Engineering handles aviation MRO and engineering-procedure queries.
	Engineering = "engineering_process_procedure_agent"

	// DataScientist handles data analysis and SQL workloads on Databricks.
	DataScientist = "data_scientist_agent"

	// GeneralChat handles everything non-specialized.
	GeneralChat = "general_chat_agent"
)

// Agent describes one platform agent for display purposes.
type Agent struct {
	ID          string
	DisplayName string
	Description string
}

// Roster lists the platform agents in routing-priority order. Display
// metadata mirrors what the coordinator reports for each specialist.
var Roster = []Agent{
	{
		ID:          Coordinator,
		DisplayName: "Master Coordinator",
		Description: "Routes requests to the most appropriate specialist agent.",
	},
	{
		ID:          Engineering,
		DisplayName: "Engineering Process Procedure Agent",
		Description: "Aviation MRO and engineering procedures with Databricks-backed retrieval.",
	},
	{
		ID:          DataScientist,
		DisplayName: "Data Scientist Agent",
		Description: "Data analysis, SQL queries and business intelligence on Databricks.",
	},
	{
		ID:          GeneralChat,
		DisplayName: "General Chat Agent",
		Description: "General conversation, advice and non-specialized requests.",
	},
}

// DisplayName returns the human-readable name for an agent ID, or the ID
// itself when unknown.
func DisplayName(id string) string {
	for _, a := range Roster {
		if a.ID == id {
			return a.DisplayName
		}
	}
	return id
}

// Segment is a contiguous span of response text attributed to one agent.
type Segment struct {
	AgentID string
	Text    string
}
