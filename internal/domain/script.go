package domain

// Project groups scripts and executions. Projects are created and managed
// outside this service; only the identity and display name are read here.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Script is a test script definition belonging to exactly one project.
// Scripts are immutable from this service's perspective.
type Script struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ProjectID   string `json:"project_id"`
	Description string `json:"description,omitempty"`
}
