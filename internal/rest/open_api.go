package rest

import (
	"encoding/json"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/ghodss/yaml"
	"github.com/go-chi/chi/v5"
)

// NewOpenAPI3 instantiates the documentation describing this service's
// endpoints.
func NewOpenAPI3() openapi3.T {
	swagger := openapi3.T{
		OpenAPI: "3.0.0",
		Info: &openapi3.Info{
			Title:       "coursetasks API",
			Description: "Live course task tracking server",
			Version:     "0.1.0",
			Contact: &openapi3.Contact{
				URL: "https://github.com/studytrack/coursetasks",
			},
		},
		Servers: openapi3.Servers{
			&openapi3.Server{
				Description: "Local development",
				URL:         "http://127.0.0.1:9234",
			},
		},
	}

	swagger.Components.Schemas = openapi3.Schemas{
		"Priority": openapi3.NewSchemaRef("",
			openapi3.NewStringSchema().
				WithEnum("low", "medium", "high")),
		"Status": openapi3.NewSchemaRef("",
			openapi3.NewStringSchema().
				WithEnum("pending", "done")),
		"Counts": openapi3.NewSchemaRef("",
			openapi3.NewObjectSchema().
				WithProperty("total", openapi3.NewIntegerSchema()).
				WithProperty("pending", openapi3.NewIntegerSchema()).
				WithProperty("done", openapi3.NewIntegerSchema())),
		"Task": openapi3.NewSchemaRef("",
			openapi3.NewObjectSchema().
				WithProperty("id", openapi3.NewUUIDSchema()).
				WithProperty("course_id", openapi3.NewStringSchema()).
				WithProperty("title", openapi3.NewStringSchema().WithMaxLength(100)).
				WithProperty("description", openapi3.NewStringSchema().WithMaxLength(500)).
				WithPropertyRef("priority", openapi3.NewSchemaRef("#/components/schemas/Priority", nil)).
				WithPropertyRef("status", openapi3.NewSchemaRef("#/components/schemas/Status", nil)).
				WithProperty("due_date", openapi3.NewStringSchema().WithFormat("date").WithNullable()).
				WithProperty("assigned_to", openapi3.NewStringSchema()).
				WithProperty("created_at", openapi3.NewDateTimeSchema())),
	}

	swagger.Components.RequestBodies = openapi3.RequestBodies{
		"CreateTaskRequest": &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().
				WithDescription("Request used for creating a task.").
				WithRequired(true).
				WithJSONSchema(openapi3.NewObjectSchema().
					WithProperty("title", openapi3.NewStringSchema().WithMinLength(1).WithMaxLength(100)).
					WithProperty("description", openapi3.NewStringSchema().WithMaxLength(500)).
					WithProperty("priority", openapi3.NewStringSchema().WithEnum("low", "medium", "high")).
					WithProperty("due_date", openapi3.NewStringSchema().WithFormat("date")).
					WithProperty("assigned_to", openapi3.NewStringSchema())),
		},
		"UpdateTaskRequest": &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().
				WithDescription("Partial patch forwarded to the remote store.").
				WithRequired(true).
				WithJSONSchema(openapi3.NewObjectSchema().
					WithProperty("title", openapi3.NewStringSchema().WithMinLength(1).WithMaxLength(100)).
					WithProperty("description", openapi3.NewStringSchema().WithMaxLength(500)).
					WithProperty("priority", openapi3.NewStringSchema().WithEnum("low", "medium", "high")).
					WithProperty("status", openapi3.NewStringSchema().WithEnum("pending", "done")).
					WithProperty("due_date", openapi3.NewStringSchema().WithFormat("date")).
					WithProperty("assigned_to", openapi3.NewStringSchema())),
		},
		"ToggleTaskRequest": &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().
				WithDescription("Status the caller last observed.").
				WithRequired(true).
				WithJSONSchema(openapi3.NewObjectSchema().
					WithProperty("current_status", openapi3.NewStringSchema().WithEnum("pending", "done"))),
		},
	}

	swagger.Components.Responses = openapi3.Responses{
		"ErrorResponse": &openapi3.ResponseRef{
			Value: openapi3.NewResponse().
				WithDescription("Response when an error happens.").
				WithContent(openapi3.NewContentWithJSONSchema(openapi3.NewObjectSchema().
					WithProperty("error", openapi3.NewStringSchema()))),
		},
		"CreateTaskResponse": &openapi3.ResponseRef{
			Value: openapi3.NewResponse().
				WithDescription("Response returned back after creating a task.").
				WithContent(openapi3.NewContentWithJSONSchema(openapi3.NewObjectSchema().
					WithPropertyRef("task", openapi3.NewSchemaRef("#/components/schemas/Task", nil)))),
		},
		"ListTasksResponse": &openapi3.ResponseRef{
			Value: openapi3.NewResponse().
				WithDescription("One-shot view of a course's tasks.").
				WithContent(openapi3.NewContentWithJSONSchema(openapi3.NewObjectSchema().
					WithPropertyRef("counts", openapi3.NewSchemaRef("#/components/schemas/Counts", nil)).
					WithProperty("tasks", openapi3.NewArraySchema().WithItems(openapi3.NewSchema())).
					WithProperty("assignees", openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())))),
		},
	}

	swagger.Paths = openapi3.Paths{
		"/courses": &openapi3.PathItem{
			Get: &openapi3.Operation{
				OperationID: "ListCourses",
				Responses: openapi3.Responses{
					"200": &openapi3.ResponseRef{
						Value: openapi3.NewResponse().
							WithDescription("Course keys currently holding tasks.").
							WithContent(openapi3.NewContentWithJSONSchema(openapi3.NewObjectSchema().
								WithProperty("courses", openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())))),
					},
					"500": &openapi3.ResponseRef{Ref: "#/components/responses/ErrorResponse"},
				},
			},
		},
		"/search": &openapi3.PathItem{
			Get: &openapi3.Operation{
				OperationID: "SearchTasks",
				Parameters: openapi3.Parameters{
					{Value: openapi3.NewQueryParameter("title").WithSchema(openapi3.NewStringSchema())},
					{Value: openapi3.NewQueryParameter("assignee").WithSchema(openapi3.NewStringSchema())},
					{Value: openapi3.NewQueryParameter("priority").WithSchema(openapi3.NewStringSchema())},
					{Value: openapi3.NewQueryParameter("status").WithSchema(openapi3.NewStringSchema())},
					{Value: openapi3.NewQueryParameter("from").WithSchema(openapi3.NewInt64Schema())},
					{Value: openapi3.NewQueryParameter("size").WithSchema(openapi3.NewInt64Schema())},
				},
				Responses: openapi3.Responses{
					"200": &openapi3.ResponseRef{
						Value: openapi3.NewResponse().
							WithDescription("Indexed tasks matching the received values.").
							WithContent(openapi3.NewContentWithJSONSchema(openapi3.NewObjectSchema().
								WithProperty("tasks", openapi3.NewArraySchema().WithItems(openapi3.NewSchema())).
								WithProperty("total", openapi3.NewInt64Schema()))),
					},
					"500": &openapi3.ResponseRef{Ref: "#/components/responses/ErrorResponse"},
				},
			},
		},
		"/login": &openapi3.PathItem{
			Post: &openapi3.Operation{
				OperationID: "Login",
				RequestBody: &openapi3.RequestBodyRef{
					Value: openapi3.NewRequestBody().
						WithRequired(true).
						WithJSONSchema(openapi3.NewObjectSchema().
							WithProperty("user_id", openapi3.NewStringSchema()).
							WithProperty("name", openapi3.NewStringSchema())),
				},
				Responses: openapi3.Responses{
					"201": &openapi3.ResponseRef{
						Value: openapi3.NewResponse().
							WithDescription("Opaque session token for the Authorization header.").
							WithContent(openapi3.NewContentWithJSONSchema(openapi3.NewObjectSchema().
								WithProperty("token", openapi3.NewStringSchema()))),
					},
					"400": &openapi3.ResponseRef{Ref: "#/components/responses/ErrorResponse"},
				},
			},
		},
		"/courses/{courseID}/tasks": &openapi3.PathItem{
			Get: &openapi3.Operation{
				OperationID: "ListTasks",
				Parameters: openapi3.Parameters{
					{Value: openapi3.NewPathParameter("courseID").WithSchema(openapi3.NewStringSchema())},
					{Value: openapi3.NewQueryParameter("status").WithSchema(openapi3.NewStringSchema())},
					{Value: openapi3.NewQueryParameter("priority").WithSchema(openapi3.NewStringSchema())},
					{Value: openapi3.NewQueryParameter("assignee").WithSchema(openapi3.NewStringSchema())},
					{Value: openapi3.NewQueryParameter("sortBy").WithSchema(openapi3.NewStringSchema())},
				},
				Responses: openapi3.Responses{
					"200": &openapi3.ResponseRef{Ref: "#/components/responses/ListTasksResponse"},
					"500": &openapi3.ResponseRef{Ref: "#/components/responses/ErrorResponse"},
				},
			},
			Post: &openapi3.Operation{
				OperationID: "CreateTask",
				Parameters: openapi3.Parameters{
					{Value: openapi3.NewPathParameter("courseID").WithSchema(openapi3.NewStringSchema())},
				},
				RequestBody: &openapi3.RequestBodyRef{Ref: "#/components/requestBodies/CreateTaskRequest"},
				Responses: openapi3.Responses{
					"201": &openapi3.ResponseRef{Ref: "#/components/responses/CreateTaskResponse"},
					"400": &openapi3.ResponseRef{Ref: "#/components/responses/ErrorResponse"},
					"500": &openapi3.ResponseRef{Ref: "#/components/responses/ErrorResponse"},
				},
			},
		},
		"/courses/{courseID}/tasks/{taskID}": &openapi3.PathItem{
			Put: &openapi3.Operation{
				OperationID: "UpdateTask",
				Parameters: openapi3.Parameters{
					{Value: openapi3.NewPathParameter("courseID").WithSchema(openapi3.NewStringSchema())},
					{Value: openapi3.NewPathParameter("taskID").WithSchema(openapi3.NewUUIDSchema())},
				},
				RequestBody: &openapi3.RequestBodyRef{Ref: "#/components/requestBodies/UpdateTaskRequest"},
				Responses: openapi3.Responses{
					"200": &openapi3.ResponseRef{Ref: "#/components/responses/ErrorResponse"},
					"404": &openapi3.ResponseRef{Ref: "#/components/responses/ErrorResponse"},
				},
			},
			Delete: &openapi3.Operation{
				OperationID: "DeleteTask",
				Parameters: openapi3.Parameters{
					{Value: openapi3.NewPathParameter("courseID").WithSchema(openapi3.NewStringSchema())},
					{Value: openapi3.NewPathParameter("taskID").WithSchema(openapi3.NewUUIDSchema())},
				},
				Responses: openapi3.Responses{
					"200": &openapi3.ResponseRef{Ref: "#/components/responses/ErrorResponse"},
				},
			},
		},
		"/courses/{courseID}/tasks/{taskID}/toggle": &openapi3.PathItem{
			Post: &openapi3.Operation{
				OperationID: "ToggleTask",
				Parameters: openapi3.Parameters{
					{Value: openapi3.NewPathParameter("courseID").WithSchema(openapi3.NewStringSchema())},
					{Value: openapi3.NewPathParameter("taskID").WithSchema(openapi3.NewUUIDSchema())},
				},
				RequestBody: &openapi3.RequestBodyRef{Ref: "#/components/requestBodies/ToggleTaskRequest"},
				Responses: openapi3.Responses{
					"200": &openapi3.ResponseRef{Ref: "#/components/responses/ErrorResponse"},
				},
			},
		},
		"/courses/{courseID}/tasks/stream": &openapi3.PathItem{
			Get: &openapi3.Operation{
				OperationID: "StreamTasks",
				Description: "Server-Sent Events stream pushing one view per confirmed change.",
				Parameters: openapi3.Parameters{
					{Value: openapi3.NewPathParameter("courseID").WithSchema(openapi3.NewStringSchema())},
				},
				Responses: openapi3.Responses{
					"200": &openapi3.ResponseRef{
						Value: openapi3.NewResponse().WithDescription("text/event-stream of view frames."),
					},
				},
			},
		},
	}

	return swagger
}

// RegisterOpenAPI connects the documentation endpoints to the router.
func RegisterOpenAPI(r chi.Router) {
	swagger := NewOpenAPI3()

	r.Get("/openapi3.json", func(w http.ResponseWriter, _ *http.Request) {
		renderResponse(w, &swagger, http.StatusOK)
	})

	r.Get("/openapi3.yaml", func(w http.ResponseWriter, _ *http.Request) {
		data, err := json.Marshal(&swagger)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		res, err := yaml.JSONToYAML(data)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/x-yaml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(res)
	})
}
