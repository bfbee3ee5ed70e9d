// Package doc holds the C4 architecture model rendered with the mdl tool,
// run "mdl serve github.com/studytrack/coursetasks/internal/doc" to browse
// the diagrams.
package doc

import . "goa.design/model/dsl"

var _ = Design("coursetasks", "Live task collections for course work", func() {
	var PostgreSQL = SoftwareSystem("PostgreSQL", "Single source of truth for task records", func() {
		External()
		Tag("database")
	})

	var RabbitMQ = SoftwareSystem("RabbitMQ", "Topic exchange carrying per-course change events", func() {
		External()
	})

	var ElasticSearch = SoftwareSystem("ElasticSearch", "Search projection across all courses", func() {
		External()
		Tag("database")
	})

	var System = SoftwareSystem("Course Tasks", "Keeps every student's task list for a course in sync", func() {
		URL("https://github.com/studytrack/coursetasks")

		Container("Feed Server", "REST surface plus the live stream", "Go", func() {
			Uses(PostgreSQL, "Reads and writes records", "pgx", Synchronous)
			Uses(RabbitMQ, "Publishes change events, consumes change signals", "AMQP", Asynchronous)
		})

		Container("ElasticSearch Indexer", "Folds change events into the search index", "Go", func() {
			Uses(RabbitMQ, "Consumes change events", "AMQP", Asynchronous)
			Uses(ElasticSearch, "Indexes and deletes records", "HTTP", Synchronous)
		})
	})

	Person("Student", "Tracks and updates course work", func() {
		Uses(System, "Creates, toggles and deletes tasks, watches the live list", "HTTPS/SSE", Synchronous)
	})

	Views(func() {
		SystemContextView(System, "Context", "System context of the task tracker", func() {
			AddAll()
			AutoLayout(RankLeftRight)
		})

		ContainerView(System, "Containers", "Processes making up the task tracker", func() {
			AddAll()
			AutoLayout(RankLeftRight)
		})

		Styles(func() {
			ElementStyle("database", func() {
				Shape(ShapeCylinder)
			})
			ElementStyle("person", func() {
				Shape(ShapePerson)
			})
		})
	})
})
