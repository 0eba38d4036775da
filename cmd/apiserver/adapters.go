package main

import (
	"github.com/turtacn/FamilyScope/internal/application/importer"
	"github.com/turtacn/FamilyScope/internal/bootstrap"
	"github.com/turtacn/FamilyScope/internal/interfaces/http/handlers"
)

// importQueue returns where POST /family/import sends its jobs: the Kafka
// topic when a worker consumes it, otherwise a goroutine in this process.
// The returned close func is nil for the broker queue; the App owns the
// publisher.
func importQueue(app *bootstrap.App) (handlers.ImportQueue, func() error) {
	if app.Publisher != nil {
		return app.Publisher, nil
	}
	q := importer.NewLocalQueue(app.Family.ImportJob, app.Logger)
	return q, q.Close
}

//Personal.AI order the ending
