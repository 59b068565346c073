package entitygraph

import "github.com/goliatone/go-entity-cache/querykey"

// Well-known namespaces of the admin dashboard data model.
const (
	Projects  querykey.Namespace = "projects"
	Tickets   querykey.Namespace = "tickets"
	Tasks     querykey.Namespace = "tasks"
	Files     querykey.Namespace = "files"
	Comments  querykey.Namespace = "comments"
	Users     querykey.Namespace = "users"
	Sessions  querykey.Namespace = "sessions"
	Processes querykey.Namespace = "processes"
	Crawls    querykey.Namespace = "crawls"
	Settings  querykey.Namespace = "settings"
)

// DefaultGraph builds the relationship map for the dashboard entities.
// A change to a project cascades through tickets and files; tickets fan out
// to tasks and comments. Session, process and crawl panels are project scoped
// but otherwise independent.
func DefaultGraph() *Graph {
	g := NewGraph()

	g.MustRegister(Projects, Relationship{
		Dependents: []querykey.Namespace{Tickets, Files},
		Children:   []querykey.Namespace{Tickets, Files},
	})
	g.MustRegister(Tickets, Relationship{
		Dependents:    []querykey.Namespace{Tasks, Comments},
		Dependencies:  []querykey.Namespace{Projects},
		Children:      []querykey.Namespace{Tasks, Comments},
		ProjectScoped: true,
	})
	g.MustRegister(Tasks, Relationship{
		Dependencies:  []querykey.Namespace{Tickets},
		ProjectScoped: true,
	})
	g.MustRegister(Files, Relationship{
		Dependencies:  []querykey.Namespace{Projects},
		ProjectScoped: true,
	})
	g.MustRegister(Comments, Relationship{
		Dependencies: []querykey.Namespace{Tickets},
	})
	g.MustRegister(Users, Relationship{
		Dependents: []querykey.Namespace{Sessions},
	})
	g.MustRegister(Sessions, Relationship{
		Dependencies:  []querykey.Namespace{Users},
		ProjectScoped: true,
	})
	g.MustRegister(Processes, Relationship{
		ProjectScoped: true,
	})
	g.MustRegister(Crawls, Relationship{
		Dependents:    []querykey.Namespace{Files},
		ProjectScoped: true,
	})
	g.MustRegister(Settings, Relationship{})

	return g
}
